package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledgerbook"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	Mutations         *prometheus.CounterVec
	MutationDuration  *prometheus.HistogramVec
	MutationErrors    *prometheus.CounterVec
	TransactionAmount *prometheus.HistogramVec

	// Audit metrics
	AuditEntriesRecorded *prometheus.CounterVec
	AuditFailures        prometheus.Counter

	// Authorization metrics
	AuthFailures         *prometheus.CounterVec
	FiscalLockRejections prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Concurrency metrics
	LockContention prometheus.Counter
	DBRetries      prometheus.Counter

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_mutations_total",
				Help:      "Total successful transaction mutations by action",
			},
			[]string{"action"},
		),
		MutationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_mutation_duration_seconds",
				Help:      "Duration of transaction mutations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		MutationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_mutation_errors_total",
				Help:      "Total failed transaction mutations by action and error type",
			},
			[]string{"action", "error_type"},
		),
		TransactionAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_amount",
				Help:      "Amounts of created transactions",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"type"},
		),

		AuditEntriesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_entries_total",
				Help:      "Total audit entries recorded by action",
			},
			[]string{"action"},
		),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit writes that failed after the mutation committed",
		}),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total authorization failures",
			},
			[]string{"reason"},
		),
		FiscalLockRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fiscal_lock_rejections_total",
			Help:      "Writes rejected because the target date is in a closed fiscal year",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total rate limit hits",
		}),

		LockContention: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_contention_total",
			Help:      "Distributed lock acquisitions that had to wait or gave up",
		}),
		DBRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_retries_total",
			Help:      "Database operations retried after deadlock or serialization failure",
		}),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_events_total",
				Help:      "Outbox events processed by status",
			},
			[]string{"status"},
		),
	}
}
