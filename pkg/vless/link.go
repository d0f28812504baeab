// Package vless renders and parses VLESS connection URIs of the form
//
//	vless://<id>@<host>:<port>?type=ws&security=tls&path=/vless&flow=...#remark
//
// Encoding is pure and deterministic; Parse(Encode(l)) == l.
package vless

import (
	"fmt"
	"net/url"
	"strconv"
)

const Scheme = "vless"

// Link holds every field a client needs to import a credential.
type Link struct {
	ID     string
	Host   string
	Port   int
	Path   string
	Flow   string
	Remark string
}

// Encode renders the link as a URI string. Fields that can carry
// reserved characters are URL-escaped.
func (l Link) Encode() string {
	query := url.Values{}
	query.Set("type", "ws")
	query.Set("security", "tls")
	if l.Path != "" {
		query.Set("path", l.Path)
	}
	if l.Flow != "" {
		query.Set("flow", l.Flow)
	}

	u := url.URL{
		Scheme:   Scheme,
		User:     url.User(l.ID),
		Host:     fmt.Sprintf("%s:%d", l.Host, l.Port),
		RawQuery: query.Encode(),
		Fragment: l.Remark,
	}
	return u.String()
}

// Parse decodes a URI produced by Encode.
func Parse(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("invalid vless link: %w", err)
	}
	if u.Scheme != Scheme {
		return Link{}, fmt.Errorf("invalid vless link: scheme %q", u.Scheme)
	}
	if u.User == nil || u.User.Username() == "" {
		return Link{}, fmt.Errorf("invalid vless link: missing credential id")
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return Link{}, fmt.Errorf("invalid vless link: port %q", u.Port())
	}

	query := u.Query()
	return Link{
		ID:     u.User.Username(),
		Host:   u.Hostname(),
		Port:   port,
		Path:   query.Get("path"),
		Flow:   query.Get("flow"),
		Remark: u.Fragment,
	}, nil
}
