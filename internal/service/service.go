// Package service implements the provisioning engine: the orchestration
// that keeps issued credentials consistent between the relational store
// and the proxy daemon's own config document.
package service

import (
	"context"
	"time"

	"github.com/server24/provisiond/internal/domain"
)

// IssueRequest asks for a new credential for an existing subscriber.
type IssueRequest struct {
	SubscriberID int64         `validate:"required,gt=0"`
	QuotaBytes   int64         `validate:"gte=0"` // 0 = unlimited
	TTL          time.Duration `validate:"required,gt=0"`
	Flow         string
}

// IssueResult is the outcome of a successful issue. Warning carries a
// degraded-but-accepted outcome: the credential row exists, but the
// document write or the daemon reload did not take. It wraps
// ErrProxyConfigUnavailable or ErrReloadFailed.
type IssueResult struct {
	Credential *domain.Credential
	Link       string
	Warning    error
}

// PurchaseRequest buys a credential against the subscriber's balance,
// identified by the external platform account id.
type PurchaseRequest struct {
	SubscriberExternalID int64         `validate:"required"`
	QuotaBytes           int64         `validate:"required,gt=0"`
	TTL                  time.Duration `validate:"required,gt=0"`
	Flow                 string
}

// PurchaseResult is an IssueResult plus the money that moved.
type PurchaseResult struct {
	IssueResult
	Price      int64
	NewBalance int64
}

// CredentialWithLink pairs a stored credential with its rendered
// connection URI.
type CredentialWithLink struct {
	Credential *domain.Credential
	Link       string
}

// RevokeResult reports a completed revoke. Warning is set when the
// daemon reload failed after the document write.
type RevokeResult struct {
	Warning error
}

// ReconcileResult summarizes one healing pass over the document.
type ReconcileResult struct {
	Added   int
	Removed int
	Warning error
}

// SubscriberView is a subscriber together with every credential issued
// to them.
type SubscriberView struct {
	Subscriber  *domain.Subscriber
	Credentials []*domain.Credential
}

// Provisioner is the narrow interface the presentation layer (bot,
// HTTP, CLI) calls into. No document internals cross this boundary.
type Provisioner interface {
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	Get(ctx context.Context, id domain.CredentialID) (*CredentialWithLink, error)
	Renew(ctx context.Context, id domain.CredentialID, extension time.Duration) (time.Time, error)
	UpdateUsage(ctx context.Context, id domain.CredentialID, usedBytes int64, reset bool) error
	Revoke(ctx context.Context, id domain.CredentialID) (*RevokeResult, error)
	ListAll(ctx context.Context) ([]*domain.Credential, error)

	RegisterSubscriber(ctx context.Context, externalID int64, username, fullName string) (*domain.Subscriber, error)
	GetSubscriber(ctx context.Context, externalID int64) (*SubscriberView, error)
	ListSubscribers(ctx context.Context) ([]*domain.Subscriber, error)

	Reconcile(ctx context.Context) (*ReconcileResult, error)
}
