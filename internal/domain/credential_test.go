package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialExpired(t *testing.T) {
	now := time.Now().UTC()

	cred := &Credential{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, cred.Expired(now))
	assert.True(t, cred.Expired(now.Add(2*time.Hour)))

	unset := &Credential{}
	assert.False(t, unset.Expired(now), "zero expiry never expires")
}

func TestCredentialRemainingBytes(t *testing.T) {
	unlimited := &Credential{}
	assert.EqualValues(t, -1, unlimited.RemainingBytes())

	cred := &Credential{QuotaBytes: 10 << 30, UsedBytes: 4 << 30}
	assert.EqualValues(t, 6<<30, cred.RemainingBytes())

	exhausted := &Credential{QuotaBytes: 10 << 30, UsedBytes: 12 << 30}
	assert.EqualValues(t, 0, exhausted.RemainingBytes())
}
