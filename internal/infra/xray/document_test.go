package xray

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "log": {"loglevel": "warning", "access": "/var/log/xray/access.log"},
  "inbounds": [
    {
      "tag": "api",
      "protocol": "dokodemo-door",
      "port": 8080,
      "settings": {"address": "127.0.0.1"}
    },
    {
      "protocol": "vless",
      "port": 443,
      "settings": {
        "clients": [{"id": "existing-client", "flow": "xtls-rprx-vision"}],
        "decryption": "none"
      },
      "streamSettings": {"network": "ws", "wsSettings": {"path": "/vless"}}
    },
    {
      "protocol": "shadowsocks",
      "port": 8388,
      "settings": {"method": "aes-256-gcm"}
    }
  ],
  "outbounds": [{"protocol": "freedom", "tag": "direct"}],
  "routing": {"rules": []}
}`

func TestParseDocumentRejectsMalformedJSON(t *testing.T) {
	_, err := ParseDocument([]byte(`{"inbounds": [`))
	require.Error(t, err)

	_, err = ParseDocument([]byte(`{"inbounds": {"not": "an array"}}`))
	require.Error(t, err)
}

func TestDocumentPorts(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	ports, err := doc.Ports()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{8080, 443, 8388}, ports)
}

func TestDocumentClients(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	clients, err := doc.Clients("vless")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "existing-client", clients[0].ID)
	assert.Equal(t, "xtls-rprx-vision", clients[0].Flow)

	_, err = doc.Clients("trojan")
	require.ErrorIs(t, err, ErrNoInbound)
}

func TestAddClientPreservesUnrelatedFields(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	require.NoError(t, doc.AddClient("vless", Client{ID: "new-client"}))

	out, err := doc.Marshal()
	require.NoError(t, err)

	reparsed, err := ParseDocument(out)
	require.NoError(t, err)

	clients, err := reparsed.Clients("vless")
	require.NoError(t, err)
	require.Len(t, clients, 2)

	ports, err := reparsed.Ports()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{8080, 443, 8388}, ports, "other listeners untouched")

	// The untouched listeners survive byte-for-byte; check one field
	// buried in a sibling inbound and one at top level.
	assert.Contains(t, string(out), `"aes-256-gcm"`)
	assert.Contains(t, string(out), `"/var/log/xray/access.log"`)
	assert.Contains(t, string(out), `"decryption"`)
}

func TestMarshalPreservesKeyOrder(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	require.NoError(t, doc.AddClient("vless", Client{ID: "new-client"}))

	out, err := doc.Marshal()
	require.NoError(t, err)
	s := string(out)

	// Top-level keys keep the order of the source text.
	assert.Less(t, strings.Index(s, `"log"`), strings.Index(s, `"inbounds"`))
	assert.Less(t, strings.Index(s, `"inbounds"`), strings.Index(s, `"outbounds"`))
	assert.Less(t, strings.Index(s, `"outbounds"`), strings.Index(s, `"routing"`))

	// So do the touched inbound's own keys and its settings object.
	assert.Less(t, strings.Index(s, `"tag"`), strings.Index(s, `"protocol": "dokodemo-door"`))
	inbound := s[strings.Index(s, `"protocol": "vless"`):]
	assert.Less(t, strings.Index(inbound, `"port"`), strings.Index(inbound, `"settings"`))
	assert.Less(t, strings.Index(inbound, `"clients"`), strings.Index(inbound, `"decryption"`))
	assert.Less(t, strings.Index(inbound, `"decryption"`), strings.Index(inbound, `"streamSettings"`))
}

func TestAddClientExistingIDIsNoop(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	require.NoError(t, doc.AddClient("vless", Client{ID: "existing-client"}))

	clients, err := doc.Clients("vless")
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

func TestAddClientNoInbound(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"inbounds": []}`))
	require.NoError(t, err)

	err = doc.AddClient("vless", Client{ID: "x"})
	require.ErrorIs(t, err, ErrNoInbound)
}

func TestRemoveClient(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	removed, err := doc.RemoveClient("vless", "existing-client")
	require.NoError(t, err)
	assert.True(t, removed)

	clients, err := doc.Clients("vless")
	require.NoError(t, err)
	assert.Empty(t, clients)

	removed, err = doc.RemoveClient("vless", "existing-client")
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent entry is a no-op")
}

func TestNoopMutationRoundTripsDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	// An add of an existing id and a remove of an unknown id must not
	// disturb anything.
	require.NoError(t, doc.AddClient("vless", Client{ID: "existing-client"}))
	removed, err := doc.RemoveClient("vless", "never-there")
	require.NoError(t, err)
	assert.False(t, removed)

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, sampleConfig, string(out))
}

func TestAddThenRemoveRestoresClientList(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleConfig))
	require.NoError(t, err)

	require.NoError(t, doc.AddClient("vless", Client{ID: "ephemeral", Flow: "f"}))
	removed, err := doc.RemoveClient("vless", "ephemeral")
	require.NoError(t, err)
	assert.True(t, removed)

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, sampleConfig, string(out))
}

func TestDocumentWithoutInbounds(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"log": {"loglevel": "info"}}`))
	require.NoError(t, err)

	ports, err := doc.Ports()
	require.NoError(t, err)
	assert.Empty(t, ports)

	out, err := doc.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"log": {"loglevel": "info"}}`, string(out))
}
