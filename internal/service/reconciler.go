package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/server24/provisiond/internal/domain"
	"github.com/server24/provisiond/internal/infra/xray"
)

// Reconcile heals drift between the store and the document in both
// directions: active credentials missing from the client list are
// provisioned, client entries with no store record are stripped. One
// write, one reload, only when something actually changed.
func (s *provisioner) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.credentials.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	want := make(map[string]*domain.Credential, len(creds))
	for _, cred := range creds {
		if cred.Active {
			want[cred.ID.String()] = cred
		}
	}

	added, removed := 0, 0
	err = s.documents.Update(ctx, func(doc *xray.Document) error {
		clients, err := doc.Clients(s.cfg.Xray.Protocol)
		if errors.Is(err, xray.ErrNoInbound) {
			s.logger.Warn("document has no inbound for target protocol, nothing to reconcile",
				"protocol", s.cfg.Xray.Protocol)
			return xray.ErrUnchanged
		}
		if err != nil {
			return err
		}

		have := make(map[string]struct{}, len(clients))
		for _, client := range clients {
			have[client.ID] = struct{}{}
		}

		for id, cred := range want {
			if _, ok := have[id]; ok {
				continue
			}
			if err := doc.AddClient(s.cfg.Xray.Protocol, xray.Client{ID: id, Flow: cred.Flow}); err != nil {
				return err
			}
			added++
		}

		for _, client := range clients {
			if _, ok := want[client.ID]; ok {
				continue
			}
			if _, err := doc.RemoveClient(s.cfg.Xray.Protocol, client.ID); err != nil {
				return err
			}
			removed++
		}

		if added+removed == 0 {
			return xray.ErrUnchanged
		}
		return nil
	})
	s.metrics.ReconcileRuns.Inc()
	if err != nil {
		s.metrics.DocumentFailures.Inc()
		return nil, err
	}

	var warning error
	if added+removed > 0 {
		s.metrics.DriftHealed.Add(float64(added + removed))
		s.logger.Info("healed store/document drift", "added", added, "removed", removed)
		if err := s.reloader.Reload(ctx); err != nil {
			warning = err
			s.metrics.ReloadFailures.Inc()
			s.logger.Warn("daemon reload failed after reconcile", "error", err)
		}
	}

	return &ReconcileResult{Added: added, Removed: removed, Warning: warning}, nil
}

// Reconciler drives periodic and event-triggered reconciliation. Events
// typically come from a DocumentWatcher observing external edits to the
// config file.
type Reconciler struct {
	engine   Provisioner
	interval time.Duration
	events   <-chan struct{}
	logger   *slog.Logger
}

func NewReconciler(engine Provisioner, interval time.Duration, events <-chan struct{}, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		engine:   engine,
		interval: interval,
		events:   events,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, reconciling on every tick and on
// every external change event. Failures are logged and retried on the
// next trigger; a reconcile pass is never fatal.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-r.events:
		}

		if _, err := r.engine.Reconcile(ctx); err != nil {
			r.logger.Warn("reconcile pass failed", "error", err)
		}
	}
}
