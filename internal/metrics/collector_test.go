package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/MrKot86/ble-aura-mesh/internal/metrics"
	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

func TestNewCollectorRegistersEveryMetric(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.EstablishedPeers == nil {
		t.Error("EstablishedPeers is nil")
	}
	if c.ModeTransitions == nil {
		t.Error("ModeTransitions is nil")
	}
	if c.CycleDuration == nil {
		t.Error("CycleDuration is nil")
	}
	if c.FramesDropped == nil {
		t.Error("FramesDropped is nil")
	}
	if c.AdvertisementBytes == nil {
		t.Error("AdvertisementBytes is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterVecValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues() error: %v", err)
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveEstablishedPeersSetsGauge(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(prometheus.NewRegistry())
	c.ObserveEstablishedPeers(7)
	if got := gaugeValue(t, c.EstablishedPeers); got != 7 {
		t.Errorf("EstablishedPeers = %v, want 7", got)
	}
	c.ObserveEstablishedPeers(3)
	if got := gaugeValue(t, c.EstablishedPeers); got != 3 {
		t.Errorf("EstablishedPeers after second observation = %v, want 3", got)
	}
}

func TestObserveModeTransitionIncrementsLabeledCounter(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(prometheus.NewRegistry())
	c.ObserveModeTransition(mesh.ModeNone, mesh.ModeAura)
	c.ObserveModeTransition(mesh.ModeNone, mesh.ModeAura)
	c.ObserveModeTransition(mesh.ModeAura, mesh.ModeDevice)

	if got := counterVecValue(t, c.ModeTransitions, mesh.ModeNone.String(), mesh.ModeAura.String()); got != 2 {
		t.Errorf("ModeNone->ModeAura count = %v, want 2", got)
	}
	if got := counterVecValue(t, c.ModeTransitions, mesh.ModeAura.String(), mesh.ModeDevice.String()); got != 1 {
		t.Errorf("ModeAura->ModeDevice count = %v, want 1", got)
	}
}

func TestObserveFrameDroppedIncrementsByReason(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(prometheus.NewRegistry())
	c.ObserveFrameDropped("bad_magic")
	c.ObserveFrameDropped("bad_magic")
	c.ObserveFrameDropped("wrong_target")

	if got := counterVecValue(t, c.FramesDropped, "bad_magic"); got != 2 {
		t.Errorf("bad_magic drops = %v, want 2", got)
	}
	if got := counterVecValue(t, c.FramesDropped, "wrong_target"); got != 1 {
		t.Errorf("wrong_target drops = %v, want 1", got)
	}
}

func TestObserveCycleDurationAndAdvertisementBytesDoNotPanic(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(prometheus.NewRegistry())
	c.ObserveCycleDuration(250 * time.Millisecond)
	c.ObserveAdvertisementSent(12)
}
