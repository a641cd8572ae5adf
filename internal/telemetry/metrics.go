package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics collects the coordinator-level gauges and histograms named in
// SPEC_FULL.md's ambient stack section: per-shard pool occupancy, fanout
// latency, and cursor-iterator liveness.
type Metrics struct {
	PoolSize       *prometheus.GaugeVec
	PoolReady      *prometheus.GaugeVec
	FanoutLatency  *prometheus.HistogramVec
	ReducerErrors  *prometheus.CounterVec
	CursorsOpen    prometheus.Gauge
	TopologyEpoch  prometheus.Gauge
}

// New registers every metric against a fresh registry and returns both,
// so tests can assert on the registry without touching the global
// default one.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		PoolSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coordinator",
			Subsystem: "connpool",
			Name:      "size",
			Help:      "Number of connections configured per shard pool.",
		}, []string{"shard"}),
		PoolReady: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coordinator",
			Subsystem: "connpool",
			Name:      "ready",
			Help:      "Number of Connected connections per shard pool.",
		}, []string{"shard"}),
		FanoutLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coordinator",
			Subsystem: "dispatch",
			Name:      "fanout_latency_seconds",
			Help:      "Time from dispatch to reducer completion for a fanned-out request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		ReducerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coordinator",
			Subsystem: "reduce",
			Name:      "errors_total",
			Help:      "Reducer completions that returned a non-nil error, by command and error kind.",
		}, []string{"command", "kind"}),
		CursorsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coordinator",
			Subsystem: "cursor",
			Name:      "iterators_open",
			Help:      "Number of Iterators with a non-zero reference count.",
		}),
		TopologyEpoch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "coordinator",
			Subsystem: "topology",
			Name:      "epoch",
			Help:      "Monotonically increasing counter bumped on every applied topology diff.",
		}),
	}, reg
}

// StartServer serves /metrics on addr in the background and returns a
// shutdown func, mirroring the Adithya stack's metrics.StartServer —
// callers defer the returned func rather than holding onto *http.Server.
func StartServer(addr string, reg *prometheus.Registry, log *zap.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	return srv.Shutdown
}
