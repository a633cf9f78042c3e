// Package prom exports samplecache hook events as Prometheus metrics.
// Fingerprints are never used as label values.
package prom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/samplecache"
)

type Hooks struct {
	Fetches           prometheus.Counter
	FetchedSamples    prometheus.Counter
	FetchErrors       *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	ReplicationMisses prometheus.Counter
	CopiedSamples     prometheus.Counter
	StoreErrors       *prometheus.CounterVec
}

var _ samplecache.Hooks = (*Hooks)(nil)

// New registers the metrics with reg (prometheus.DefaultRegisterer if nil).
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Hooks{
		Fetches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "samplecache",
			Name:      "fetches_total",
			Help:      "Successful live fetches (all sub-requests done)",
		}),
		FetchedSamples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "samplecache",
			Name:      "fetched_samples_total",
			Help:      "Fresh samples returned by the provider",
		}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samplecache",
			Name:      "fetch_errors_total",
			Help:      "Failed live fetches by kind",
		}, []string{"kind"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "samplecache",
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of a live fetch",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ReplicationMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "samplecache",
			Name:      "replication_misses_total",
			Help:      "Reads that missed a cache in replication mode",
		}),
		CopiedSamples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "samplecache",
			Name:      "slice_copied_samples_total",
			Help:      "Samples copied from an inner into an outer cache",
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samplecache",
			Name:      "store_errors_total",
			Help:      "Store read/append failures by kind",
		}, []string{"kind"}),
	}
}

func (h *Hooks) Fetched(_ string, count int, took time.Duration) {
	h.Fetches.Inc()
	h.FetchedSamples.Add(float64(count))
	h.FetchDuration.Observe(took.Seconds())
}

func (h *Hooks) FetchFailed(_ string, err error) {
	h.FetchErrors.WithLabelValues(fetchKind(err)).Inc()
}

func (h *Hooks) ReplicationMiss(string, int) { h.ReplicationMisses.Inc() }

func (h *Hooks) SliceCopied(_ string, _, count int) { h.CopiedSamples.Add(float64(count)) }

func (h *Hooks) StoreError(_ string, err error) {
	kind := "io"
	if errors.Is(err, samplecache.ErrCorrupt) {
		kind = "corrupt"
	}
	h.StoreErrors.WithLabelValues(kind).Inc()
}

func fetchKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, samplecache.ErrShortBatch):
		return "short_batch"
	default:
		return "provider"
	}
}
