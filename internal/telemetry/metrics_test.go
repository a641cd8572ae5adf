package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	m, reg := New()

	m.PoolSize.WithLabelValues("0").Set(4)
	m.PoolReady.WithLabelValues("0").Set(3)
	m.CursorsOpen.Set(2)
	m.TopologyEpoch.Inc()

	got, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(got))
	for _, mf := range got {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"coordinator_connpool_size",
		"coordinator_connpool_ready",
		"coordinator_cursor_iterators_open",
		"coordinator_topology_epoch",
	} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}

	if got := testutil.ToFloat64(m.CursorsOpen); got != 2 {
		t.Errorf("CursorsOpen = %v, want 2", got)
	}
}
