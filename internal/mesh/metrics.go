package mesh

import "time"

// Metrics is the optional observability boundary Core reports into. It
// mirrors the metrics-collector injection pattern of the BFD manager
// this module is modeled on (NewManager(..., WithManagerMetrics(...)));
// Core always reports through its Metrics, and NewCore substitutes
// noopMetrics when none (or nil) is supplied via WithMetrics.
// Implementations live in internal/metrics.
type Metrics interface {
	ObserveModeTransition(from, to Mode)
	ObserveEstablishedPeers(n int)
	ObserveCycleDuration(d time.Duration)
	ObserveFrameDropped(reason string)
	ObserveAdvertisementSent(bytes int)
}

// noopMetrics discards every observation; it is the default when no
// Metrics is supplied, so call sites never need a nil check.
type noopMetrics struct{}

func (noopMetrics) ObserveModeTransition(Mode, Mode)   {}
func (noopMetrics) ObserveEstablishedPeers(int)        {}
func (noopMetrics) ObserveCycleDuration(time.Duration) {}
func (noopMetrics) ObserveFrameDropped(string)         {}
func (noopMetrics) ObserveAdvertisementSent(int)       {}
