// Package metrics exposes Prometheus collectors describing snapshot builds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

// Snapshot outcomes recorded under the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder owns the clusterstats collectors.
type Recorder struct {
	requests    *prometheus.CounterVec
	duration    prometheus.Histogram
	unavailable *prometheus.CounterVec
	reflections *prometheus.GaugeVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterstats_snapshot_requests_total",
			Help: "Cluster snapshot builds by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clusterstats_snapshot_duration_seconds",
			Help:    "Time spent assembling one cluster snapshot.",
			Buckets: prometheus.DefBuckets,
		}),
		unavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterstats_unavailable_counts_total",
			Help: "Per-source dataset counts reported as unavailable, by dataset kind.",
		}, []string{"kind"}),
		reflections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clusterstats_reflections",
			Help: "Reflections in the last snapshot, by state of their latest terminal materialization.",
		}, []string{"state"}),
	}
	reg.MustRegister(r.requests, r.duration, r.unavailable, r.reflections)
	return r
}

// Observe records one snapshot build. snap is ignored when err is non-nil.
func (r *Recorder) Observe(snap stats.ClusterSnapshot, elapsed time.Duration, err error) {
	r.duration.Observe(elapsed.Seconds())
	if err != nil {
		r.requests.WithLabelValues(StatusError).Inc()
		return
	}
	r.requests.WithLabelValues(StatusOK).Inc()

	var pds, vds int
	for _, s := range snap.Sources {
		if _, ok := s.PhysicalDatasets.Value(); !ok {
			pds++
		}
		if _, ok := s.VirtualDatasets.Value(); !ok {
			vds++
		}
	}
	r.unavailable.WithLabelValues("physical").Add(float64(pds))
	r.unavailable.WithLabelValues("virtual").Add(float64(vds))

	r.reflections.WithLabelValues("active").Set(float64(snap.ReflectionStats.ActiveReflections))
	r.reflections.WithLabelValues("error").Set(float64(snap.ReflectionStats.ErrorReflections))
}
