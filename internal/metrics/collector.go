// Package metrics implements the mesh.Metrics boundary as a set of
// Prometheus collectors, grounded on the teacher's bfdmetrics.Collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

const (
	namespace = "auramesh"
	subsystem = "core"
)

const (
	labelFromMode = "from_mode"
	labelToMode   = "to_mode"
	labelReason   = "reason"
)

// Collector holds every Prometheus metric Core reports into, implementing
// mesh.Metrics.
type Collector struct {
	EstablishedPeers  prometheus.Gauge
	ModeTransitions   *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	FramesDropped     *prometheus.CounterVec
	AdvertisementBytes prometheus.Counter
}

// NewCollector builds a Collector and registers every metric against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()
	reg.MustRegister(
		c.EstablishedPeers,
		c.ModeTransitions,
		c.CycleDuration,
		c.FramesDropped,
		c.AdvertisementBytes,
	)
	return c
}

func newMetrics() *Collector {
	return &Collector{
		EstablishedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "established_peers",
			Help:      "Number of peer slots currently in the Established state.",
		}),
		ModeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mode_transitions_total",
			Help:      "Total mode state transitions, labeled by from/to mode.",
		}, []string{labelFromMode, labelToMode}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of one scan/age/advertise cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_dropped_total",
			Help:      "Total received advertisement frames dropped, labeled by reason.",
		}, []string{labelReason}),
		AdvertisementBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "advertisement_bytes_sent_total",
			Help:      "Total bytes of advertising payload transmitted.",
		}),
	}
}

// ObserveModeTransition implements mesh.Metrics.
func (c *Collector) ObserveModeTransition(from, to mesh.Mode) {
	c.ModeTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// ObserveEstablishedPeers implements mesh.Metrics.
func (c *Collector) ObserveEstablishedPeers(n int) {
	c.EstablishedPeers.Set(float64(n))
}

// ObserveCycleDuration implements mesh.Metrics.
func (c *Collector) ObserveCycleDuration(d time.Duration) {
	c.CycleDuration.Observe(d.Seconds())
}

// ObserveFrameDropped implements mesh.Metrics.
func (c *Collector) ObserveFrameDropped(reason string) {
	c.FramesDropped.WithLabelValues(reason).Inc()
}

// ObserveAdvertisementSent implements mesh.Metrics.
func (c *Collector) ObserveAdvertisementSent(bytes int) {
	c.AdvertisementBytes.Add(float64(bytes))
}
