package vless_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/server24/provisiond/pkg/vless"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	link := vless.Link{
		ID:     "d9cb329a-4f2e-4a5f-9025-21a7e1a0a6c9",
		Host:   "proxy.example.com",
		Port:   10000,
		Path:   "/vless",
		Flow:   "xtls-rprx-vision",
		Remark: "Server24",
	}

	decoded, err := vless.Parse(link.Encode())
	require.NoError(t, err)
	assert.Equal(t, link, decoded)
}

func TestEncodeOmitsEmptyFlow(t *testing.T) {
	link := vless.Link{
		ID:   "d9cb329a-4f2e-4a5f-9025-21a7e1a0a6c9",
		Host: "proxy.example.com",
		Port: 443,
		Path: "/vless",
	}

	raw := link.Encode()
	assert.NotContains(t, raw, "flow=")

	decoded, err := vless.Parse(raw)
	require.NoError(t, err)
	assert.Empty(t, decoded.Flow)
	assert.Equal(t, 443, decoded.Port)
}

func TestEncodeEscapesReservedCharacters(t *testing.T) {
	link := vless.Link{
		ID:     "d9cb329a-4f2e-4a5f-9025-21a7e1a0a6c9",
		Host:   "proxy.example.com",
		Port:   443,
		Path:   "/a path/with?reserved&chars",
		Remark: "My Server #1",
	}

	decoded, err := vless.Parse(link.Encode())
	require.NoError(t, err)
	assert.Equal(t, link.Path, decoded.Path)
	assert.Equal(t, link.Remark, decoded.Remark)
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"http://example.com",
		"vless://@host:443",
		"vless://id@host:notaport",
	}
	for _, raw := range cases {
		_, err := vless.Parse(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
