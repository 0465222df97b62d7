package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.Mutations == nil || m.HTTPRequests == nil || m.AuditFailures == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.Mutations.WithLabelValues("create").Inc()
	m.FiscalLockRejections.Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("create")); got != 1 {
		t.Fatalf("expected 1 create mutation, got %v", got)
	}
}

func TestNewAllowsSeparateRegistries(t *testing.T) {
	// Registering twice on distinct registries must not panic.
	_ = New(prometheus.NewRegistry())
	_ = New(prometheus.NewRegistry())
}
