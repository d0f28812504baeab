package domain

import (
	"context"
	"time"
)

// Subscriber is an account holder identified by the external platform
// account id. Subscribers are created on first contact and never
// hard-deleted.
type Subscriber struct {
	ID         int64
	ExternalID int64
	Username   string
	FullName   string
	Balance    int64 // smallest currency unit
	Active     bool
	Admin      bool
	CreatedAt  time.Time
}

// SubscriberRepository defines the interface for storing and retrieving
// subscribers.
type SubscriberRepository interface {
	GetByID(ctx context.Context, id int64) (*Subscriber, error)
	GetByExternalID(ctx context.Context, externalID int64) (*Subscriber, error)
	// Upsert creates the subscriber on first contact, or refreshes the
	// display fields of an existing one. Returns the stored row.
	Upsert(ctx context.Context, sub *Subscriber) (*Subscriber, error)
	// AdjustBalance applies a signed delta and returns the new balance.
	// A delta that would take the balance negative is rejected.
	AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error)
	List(ctx context.Context) ([]*Subscriber, error)
}
