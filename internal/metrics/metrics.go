package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the provisioning engine's counters.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	CredentialsRenewed prometheus.Counter
	DocumentFailures   prometheus.Counter
	ReloadFailures     prometheus.Counter
	ReconcileRuns      prometheus.Counter
	DriftHealed        prometheus.Counter
}

// New registers the engine counters with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "credentials_issued_total",
			Help:      "Credentials issued.",
		}),
		CredentialsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "credentials_revoked_total",
			Help:      "Credentials revoked.",
		}),
		CredentialsRenewed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "credentials_renewed_total",
			Help:      "Credential renewals applied.",
		}),
		DocumentFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "document_failures_total",
			Help:      "Proxy config document reads or writes that failed.",
		}),
		ReloadFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "reload_failures_total",
			Help:      "Daemon reload signals that failed.",
		}),
		ReconcileRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation passes over the config document.",
		}),
		DriftHealed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "provisiond",
			Name:      "drift_healed_total",
			Help:      "Client entries added or removed to heal store/document drift.",
		}),
	}
}

// NewUnregistered returns metrics backed by a private registry, for
// tests and callers that do not export.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
