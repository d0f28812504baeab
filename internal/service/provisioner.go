package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/server24/provisiond/internal/domain"
	app_errors "github.com/server24/provisiond/internal/errors"
	"github.com/server24/provisiond/internal/infra/config"
	"github.com/server24/provisiond/internal/infra/xray"
	"github.com/server24/provisiond/internal/metrics"
	"github.com/server24/provisiond/pkg/vless"
)

const bytesPerGB = int64(1) << 30

type provisioner struct {
	cfg         *config.Config
	subscribers domain.SubscriberRepository
	credentials domain.CredentialRepository
	documents   xray.Store
	reloader    xray.Reloader
	metrics     *metrics.Metrics
	logger      *slog.Logger
	validate    *validator.Validate

	// mu serializes every allocate/read-modify-write cycle against the
	// config document. The document has no locking of its own; two
	// concurrent issues racing the client list is the primary
	// correctness hazard.
	mu sync.Mutex
}

// NewProvisioner wires the provisioning engine.
func NewProvisioner(
	cfg *config.Config,
	subscribers domain.SubscriberRepository,
	credentials domain.CredentialRepository,
	documents xray.Store,
	reloader xray.Reloader,
	m *metrics.Metrics,
	logger *slog.Logger,
) Provisioner {
	return &provisioner{
		cfg:         cfg,
		subscribers: subscribers,
		credentials: credentials,
		documents:   documents,
		reloader:    reloader,
		metrics:     m,
		logger:      logger,
		validate:    validator.New(),
	}
}

func (s *provisioner) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrInvalidInput, err)
	}

	sub, err := s.subscribers.GetByID(ctx, req.SubscriberID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	port, allocWarning, err := s.allocatePort(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cred := &domain.Credential{
		ID:           domain.NewCredentialID(),
		SubscriberID: sub.ID,
		Port:         port,
		Flow:         req.Flow,
		QuotaBytes:   req.QuotaBytes,
		ExpiresAt:    now.Add(req.TTL),
		Active:       true,
		CreatedAt:    now,
	}

	if err := s.credentials.Create(ctx, cred); err != nil {
		return nil, err
	}

	// From here on the credential exists in the store. Document and
	// reload failures no longer unwind it; they surface as a typed
	// warning and the reconciler heals the gap later.
	warning := allocWarning
	if err := s.provisionClient(ctx, cred); err != nil {
		warning = err
		s.metrics.DocumentFailures.Inc()
		s.logger.Warn("credential recorded but not provisioned",
			"credential", cred.ID.String(), "error", err)
	} else if err := s.reloader.Reload(ctx); err != nil {
		warning = err
		s.metrics.ReloadFailures.Inc()
		s.logger.Warn("daemon reload failed, config picked up on next reload",
			"credential", cred.ID.String(), "error", err)
	}

	s.metrics.CredentialsIssued.Inc()
	s.logger.Info("credential issued",
		"credential", cred.ID.String(), "subscriber", sub.ID, "port", cred.Port)

	return &IssueResult{
		Credential: cred,
		Link:       s.renderLink(cred),
		Warning:    warning,
	}, nil
}

func (s *provisioner) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", app_errors.ErrInvalidInput, err)
	}

	sub, err := s.subscribers.GetByExternalID(ctx, req.SubscriberExternalID)
	if err != nil {
		return nil, err
	}

	gb := (req.QuotaBytes + bytesPerGB - 1) / bytesPerGB
	price := gb * s.cfg.Billing.PricePerGB
	if sub.Balance < price {
		return nil, fmt.Errorf("%w: need %d, have %d", app_errors.ErrInsufficientBalance, price, sub.Balance)
	}

	newBalance, err := s.subscribers.AdjustBalance(ctx, sub.ID, -price)
	if err != nil {
		return nil, err
	}

	issued, err := s.Issue(ctx, IssueRequest{
		SubscriberID: sub.ID,
		QuotaBytes:   req.QuotaBytes,
		TTL:          req.TTL,
		Flow:         req.Flow,
	})
	if err != nil {
		if _, refundErr := s.subscribers.AdjustBalance(ctx, sub.ID, price); refundErr != nil {
			s.logger.Error("failed to refund after issue failure",
				"subscriber", sub.ID, "amount", price, "error", refundErr)
		}
		return nil, err
	}

	return &PurchaseResult{
		IssueResult: *issued,
		Price:       price,
		NewBalance:  newBalance,
	}, nil
}

func (s *provisioner) Get(ctx context.Context, id domain.CredentialID) (*CredentialWithLink, error) {
	cred, err := s.credentials.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CredentialWithLink{Credential: cred, Link: s.renderLink(cred)}, nil
}

// Renew extends expiry from the current expiry when it is still in the
// future, else from now. Effective validity never shrinks. The document
// is not touched; expiry is enforced by the usage collaborator.
func (s *provisioner) Renew(ctx context.Context, id domain.CredentialID, extension time.Duration) (time.Time, error) {
	if extension <= 0 {
		return time.Time{}, fmt.Errorf("%w: extension must be positive", app_errors.ErrInvalidInput)
	}

	cred, err := s.credentials.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}

	base := time.Now().UTC()
	if cred.ExpiresAt.After(base) {
		base = cred.ExpiresAt
	}
	expiresAt := base.Add(extension)

	if err := s.credentials.UpdateExpiry(ctx, id, expiresAt); err != nil {
		return time.Time{}, err
	}

	s.metrics.CredentialsRenewed.Inc()
	s.logger.Info("credential renewed", "credential", id.String(), "expires_at", expiresAt)
	return expiresAt, nil
}

// UpdateUsage records the consumed volume reported by the usage
// collaborator. A value below the stored one is rejected, not clamped,
// unless reset is set (billing-period rollover).
func (s *provisioner) UpdateUsage(ctx context.Context, id domain.CredentialID, usedBytes int64, reset bool) error {
	if usedBytes < 0 {
		return fmt.Errorf("%w: consumed volume cannot be negative", app_errors.ErrInvalidInput)
	}

	cred, err := s.credentials.Get(ctx, id)
	if err != nil {
		return err
	}

	if usedBytes == cred.UsedBytes {
		return nil
	}
	if usedBytes < cred.UsedBytes && !reset {
		return fmt.Errorf("%w: %d -> %d", app_errors.ErrUsageRegression, cred.UsedBytes, usedBytes)
	}

	return s.credentials.UpdateUsage(ctx, id, usedBytes)
}

// Revoke removes the credential from the document first, then deletes
// the store row, so a crash in between leaves only a harmless orphaned
// row. Re-running revoke on that orphan, or on an id that is already
// fully gone, succeeds.
func (s *provisioner) Revoke(ctx context.Context, id domain.CredentialID) (*RevokeResult, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: credential id is required", app_errors.ErrInvalidInput)
	}

	_, err := s.credentials.Get(ctx, id)
	missing := errors.Is(err, app_errors.ErrCredentialNotFound)
	if err != nil && !missing {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	err = s.documents.Update(ctx, func(doc *xray.Document) error {
		var err error
		removed, err = doc.RemoveClient(s.cfg.Xray.Protocol, id.String())
		if err != nil {
			return err
		}
		if !removed {
			// Document already out of sync in the safe direction.
			return xray.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		// The row stays so revoke can be retried; deleting it now would
		// leave the client entry live with no record of it.
		s.metrics.DocumentFailures.Inc()
		return nil, err
	}

	var warning error
	if removed {
		if err := s.reloader.Reload(ctx); err != nil {
			warning = err
			s.metrics.ReloadFailures.Inc()
			s.logger.Warn("daemon reload failed after revoke",
				"credential", id.String(), "error", err)
		}
	}

	if !missing {
		if err := s.credentials.Delete(ctx, id); err != nil &&
			!errors.Is(err, app_errors.ErrCredentialNotFound) {
			return nil, err
		}
	}

	s.metrics.CredentialsRevoked.Inc()
	s.logger.Info("credential revoked", "credential", id.String())
	return &RevokeResult{Warning: warning}, nil
}

func (s *provisioner) ListAll(ctx context.Context) ([]*domain.Credential, error) {
	return s.credentials.ListAll(ctx)
}

func (s *provisioner) RegisterSubscriber(ctx context.Context, externalID int64, username, fullName string) (*domain.Subscriber, error) {
	if externalID == 0 {
		return nil, fmt.Errorf("%w: external id is required", app_errors.ErrInvalidInput)
	}
	return s.subscribers.Upsert(ctx, &domain.Subscriber{
		ExternalID: externalID,
		Username:   username,
		FullName:   fullName,
	})
}

func (s *provisioner) GetSubscriber(ctx context.Context, externalID int64) (*SubscriberView, error) {
	sub, err := s.subscribers.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	creds, err := s.credentials.ListBySubscriber(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &SubscriberView{Subscriber: sub, Credentials: creds}, nil
}

func (s *provisioner) ListSubscribers(ctx context.Context) ([]*domain.Subscriber, error) {
	return s.subscribers.List(ctx)
}

// allocatePort computes the authoritative allocation view fresh from
// both sources. When the document cannot be read, allocation falls back
// to store-recorded ports and reports the degradation as a warning.
func (s *provisioner) allocatePort(ctx context.Context) (port int, warning error, err error) {
	used := make(map[int]struct{})

	ports, err := s.credentials.ListPorts(ctx)
	if err != nil {
		return 0, nil, err
	}
	for _, port := range ports {
		used[port] = struct{}{}
	}

	err = s.documents.View(ctx, func(doc *xray.Document) error {
		docPorts, err := doc.Ports()
		if err != nil {
			return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
		}
		for _, port := range docPorts {
			used[port] = struct{}{}
		}
		return nil
	})
	if err != nil {
		warning = err
		s.logger.Warn("allocating from store-recorded ports only", "error", err)
	}

	port, err = nextFreePort(s.cfg.Xray.PortFloor, s.cfg.Xray.PortCeiling, used)
	if err != nil {
		return 0, nil, err
	}
	return port, warning, nil
}

// provisionClient appends the credential's client entry to the target
// inbound. A document without that inbound counts as unavailable.
func (s *provisioner) provisionClient(ctx context.Context, cred *domain.Credential) error {
	return s.documents.Update(ctx, func(doc *xray.Document) error {
		err := doc.AddClient(s.cfg.Xray.Protocol, xray.Client{
			ID:   cred.ID.String(),
			Flow: cred.Flow,
		})
		if errors.Is(err, xray.ErrNoInbound) {
			return fmt.Errorf("%w: %v", app_errors.ErrProxyConfigUnavailable, err)
		}
		return err
	})
}

func (s *provisioner) renderLink(cred *domain.Credential) string {
	port := s.cfg.Link.Port
	if port == 0 {
		port = cred.Port
	}
	return vless.Link{
		ID:     cred.ID.String(),
		Host:   s.cfg.Link.Host,
		Port:   port,
		Path:   s.cfg.Link.Path,
		Flow:   cred.Flow,
		Remark: s.cfg.Link.Remark,
	}.Encode()
}
