package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CredentialID is the 128-bit random identifier a client presents to the
// proxy daemon. It doubles as the client entry id inside the daemon's
// config document.
type CredentialID struct {
	value uuid.UUID
}

func NewCredentialID() CredentialID {
	return CredentialID{value: uuid.New()}
}

func CredentialIDFromString(s string) (CredentialID, error) {
	if s == "" {
		return CredentialID{}, fmt.Errorf("credential id cannot be empty")
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return CredentialID{}, fmt.Errorf("invalid credential id: %w", err)
	}
	return CredentialID{value: id}, nil
}

func (c CredentialID) String() string {
	return c.value.String()
}

func (c CredentialID) IsZero() bool {
	return c.value == uuid.Nil
}

// Credential is an issued client credential. A credential is
// "provisioned" when it is both recorded here and present as a client
// entry in the proxy config document; the two can drift and the
// reconciler heals the gap.
type Credential struct {
	ID           CredentialID
	SubscriberID int64
	Port         int
	Flow         string
	QuotaBytes   int64 // 0 = unlimited
	UsedBytes    int64
	ExpiresAt    time.Time
	Active       bool
	CreatedAt    time.Time
}

// Expired reports whether the credential's validity window has passed.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// RemainingBytes returns the unused quota, or -1 for unlimited.
func (c *Credential) RemainingBytes() int64 {
	if c.QuotaBytes == 0 {
		return -1
	}
	if c.UsedBytes >= c.QuotaBytes {
		return 0
	}
	return c.QuotaBytes - c.UsedBytes
}

// CredentialRepository defines the interface for storing and retrieving
// issued credentials.
type CredentialRepository interface {
	Get(ctx context.Context, id CredentialID) (*Credential, error)
	Create(ctx context.Context, cred *Credential) error
	ListAll(ctx context.Context) ([]*Credential, error)
	ListBySubscriber(ctx context.Context, subscriberID int64) ([]*Credential, error)
	ListPorts(ctx context.Context) ([]int, error)
	UpdateExpiry(ctx context.Context, id CredentialID, expiresAt time.Time) error
	UpdateUsage(ctx context.Context, id CredentialID, usedBytes int64) error
	Delete(ctx context.Context, id CredentialID) error
}
