package xray

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoInbound is returned when the document has no inbound listener
// under the target protocol.
var ErrNoInbound = errors.New("no inbound for target protocol")

// Client is one entry in an inbound's client allow-list.
type Client struct {
	ID   string `json:"id"`
	Flow string `json:"flow"`
}

// orderedObject is a JSON object that remembers the key order of the
// source text, so rewrites do not shuffle fields around.
type orderedObject struct {
	keys   []string
	values map[string]json.RawMessage
}

func (o *orderedObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}

	o.keys = nil
	o.values = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		o.set(key, value)
	}
	_, err = dec.Token()
	return err
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedObject) get(key string) (json.RawMessage, bool) {
	value, ok := o.values[key]
	return value, ok
}

func (o *orderedObject) set(key string, value json.RawMessage) {
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Document is a parsed proxy daemon config. Only the client list of the
// first inbound under the target protocol is ever interpreted; every
// other inbound, field, and unknown key is held as raw JSON and written
// back untouched, in its original order.
type Document struct {
	top      orderedObject
	inbounds []json.RawMessage
}

type inboundProbe struct {
	Protocol string `json:"protocol"`
	Port     int    `json:"port"`
}

// ParseDocument decodes the daemon's config file.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, &doc.top); err != nil {
		return nil, fmt.Errorf("malformed config document: %w", err)
	}

	if raw, ok := doc.top.get("inbounds"); ok {
		if err := json.Unmarshal(raw, &doc.inbounds); err != nil {
			return nil, fmt.Errorf("malformed inbounds array: %w", err)
		}
	}
	return doc, nil
}

// Marshal serializes the document with two-space indentation, the way
// the daemon's own tooling writes it. Key order follows the source
// text.
func (d *Document) Marshal() ([]byte, error) {
	if d.inbounds != nil {
		raw, err := json.Marshal(d.inbounds)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal inbounds: %w", err)
		}
		d.top.set("inbounds", raw)
	}

	return json.MarshalIndent(&d.top, "", "  ")
}

// Ports returns the listener port of every inbound in the document.
func (d *Document) Ports() ([]int, error) {
	ports := make([]int, 0, len(d.inbounds))
	for _, raw := range d.inbounds {
		var probe inboundProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("malformed inbound: %w", err)
		}
		if probe.Port != 0 {
			ports = append(ports, probe.Port)
		}
	}
	return ports, nil
}

// Clients returns the client list of the first inbound under protocol.
func (d *Document) Clients(protocol string) ([]Client, error) {
	var clients []Client
	found := false
	err := d.mutateClients(protocol, func(existing []Client) ([]Client, bool) {
		clients = existing
		found = true
		return existing, false
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoInbound
	}
	return clients, nil
}

// AddClient appends a client entry to the target inbound's list. Adding
// an id that is already present is a no-op.
func (d *Document) AddClient(protocol string, client Client) error {
	matched := false
	err := d.mutateClients(protocol, func(clients []Client) ([]Client, bool) {
		matched = true
		for _, c := range clients {
			if c.ID == client.ID {
				return clients, false
			}
		}
		return append(clients, client), true
	})
	if err != nil {
		return err
	}
	if !matched {
		return ErrNoInbound
	}
	return nil
}

// RemoveClient removes the client entry with the given id from the
// target inbound's list. It reports whether an entry was removed;
// absence is not an error.
func (d *Document) RemoveClient(protocol, id string) (bool, error) {
	removed := false
	err := d.mutateClients(protocol, func(clients []Client) ([]Client, bool) {
		kept := clients[:0]
		for _, c := range clients {
			if c.ID == id {
				removed = true
				continue
			}
			kept = append(kept, c)
		}
		return kept, removed
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// mutateClients locates the first inbound under protocol, hands its
// decoded client list to fn, and splices the returned list back into
// the raw inbound when fn reports a change. All sibling fields of the
// inbound and its settings object survive byte-for-byte.
func (d *Document) mutateClients(protocol string, fn func([]Client) ([]Client, bool)) error {
	for i, raw := range d.inbounds {
		var probe inboundProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return fmt.Errorf("malformed inbound: %w", err)
		}
		if probe.Protocol != protocol {
			continue
		}

		var inbound orderedObject
		if err := json.Unmarshal(raw, &inbound); err != nil {
			return fmt.Errorf("malformed inbound: %w", err)
		}

		var settings orderedObject
		if rawSettings, ok := inbound.get("settings"); ok {
			if err := json.Unmarshal(rawSettings, &settings); err != nil {
				return fmt.Errorf("malformed inbound settings: %w", err)
			}
		}

		var clients []Client
		if rawClients, ok := settings.get("clients"); ok {
			if err := json.Unmarshal(rawClients, &clients); err != nil {
				return fmt.Errorf("malformed client list: %w", err)
			}
		}

		updated, changed := fn(clients)
		if !changed {
			return nil
		}
		if updated == nil {
			updated = []Client{}
		}

		rawClients, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal client list: %w", err)
		}
		settings.set("clients", rawClients)

		rawSettings, err := json.Marshal(&settings)
		if err != nil {
			return fmt.Errorf("failed to marshal inbound settings: %w", err)
		}
		inbound.set("settings", rawSettings)

		rawInbound, err := json.Marshal(&inbound)
		if err != nil {
			return fmt.Errorf("failed to marshal inbound: %w", err)
		}
		d.inbounds[i] = rawInbound
		return nil
	}
	return nil
}
