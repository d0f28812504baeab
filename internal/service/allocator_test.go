package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "github.com/server24/provisiond/internal/errors"
)

func TestNextFreePort(t *testing.T) {
	port, err := nextFreePort(10000, 65535, nil)
	require.NoError(t, err)
	assert.Equal(t, 10000, port)

	used := map[int]struct{}{10000: {}, 10001: {}, 10003: {}}
	port, err = nextFreePort(10000, 65535, used)
	require.NoError(t, err)
	assert.Equal(t, 10002, port, "smallest gap wins")
}

func TestNextFreePortExhausted(t *testing.T) {
	used := map[int]struct{}{10000: {}, 10001: {}, 10002: {}}
	_, err := nextFreePort(10000, 10002, used)
	require.ErrorIs(t, err, app_errors.ErrAllocationExhausted)
}
