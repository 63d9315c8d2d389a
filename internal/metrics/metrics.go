// Package metrics exposes the sync engine's prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "kitchen"
	subsystem = "sync"
)

// Confirmation paths.
const (
	PathDirect = "direct"
	PathDrain  = "drain"
)

// Metrics groups the engine collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	enqueued     *prometheus.CounterVec
	confirmed    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	drains       prometheus.Counter
	drainTime    prometheus.Histogram
	pending      prometheus.Gauge
	online       prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actions_enqueued_total",
			Help:      "Pending actions written to the queue, by type and enqueue result",
		}, []string{"type", "result"}),
		confirmed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actions_confirmed_total",
			Help:      "Actions confirmed by the server, by type and path",
		}, []string{"type", "path"}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actions_failed_total",
			Help:      "Failed remote calls for actions, by type",
		}, []string{"type"}),
		deadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "actions_dead_lettered_total",
			Help:      "Actions removed from replay, by type",
		}, []string{"type"}),
		drains: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drains_total",
			Help:      "Completed drain passes",
		}),
		drainTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drain_duration_seconds",
			Help:      "Time taken by one drain pass",
			Buckets:   prometheus.DefBuckets,
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_actions",
			Help:      "Actions waiting in the queue",
		}),
		online: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "online",
			Help:      "1 when the backend is considered reachable",
		}),
	}
}

func (m *Metrics) Enqueued(actionType, result string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(actionType, result).Inc()
}

func (m *Metrics) Confirmed(actionType, path string) {
	if m == nil {
		return
	}
	m.confirmed.WithLabelValues(actionType, path).Inc()
}

func (m *Metrics) Failed(actionType string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(actionType).Inc()
}

func (m *Metrics) DeadLettered(actionType string) {
	if m == nil {
		return
	}
	m.deadLettered.WithLabelValues(actionType).Inc()
}

// DrainDone records one finished drain pass.
func (m *Metrics) DrainDone(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.drains.Inc()
	m.drainTime.Observe(elapsed.Seconds())
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	v := 0.0
	if online {
		v = 1
	}
	m.online.Set(v)
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
