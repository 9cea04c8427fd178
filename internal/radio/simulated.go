// Package radio implements the mesh.Radio boundary: an in-process simulated
// medium for tests and single-host demos, and two real Linux backends
// (BlueZ over D-Bus, and a raw HCI socket) for production.
package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

// Bus is a shared in-process advertising medium: every Simulated radio
// attached to the same Bus observes every other attached radio's
// advertisements, mirroring the fan-out of a real RF broadcast domain.
// Grounded on the teacher's mock transport pattern (internal/netio's
// injectable test doubles), generalized into a real many-to-many bus since
// the mesh has no point-to-point connections to mock.
type Bus struct {
	mu        sync.Mutex
	listeners map[*Simulated]mesh.ScanCallback
}

// NewBus returns an empty shared medium.
func NewBus() *Bus {
	return &Bus{listeners: make(map[*Simulated]mesh.ScanCallback)}
}

func (b *Bus) attach(s *Simulated, cb mesh.ScanCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[s] = cb
}

func (b *Bus) detach(s *Simulated) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, s)
}

func (b *Bus) publish(from *Simulated, mac mesh.MAC, rssi int8, payload []byte) {
	b.mu.Lock()
	snapshot := make(map[*Simulated]mesh.ScanCallback, len(b.listeners))
	for s, cb := range b.listeners {
		if s == from {
			continue
		}
		snapshot[s] = cb
	}
	b.mu.Unlock()

	for _, cb := range snapshot {
		cb(mac, rssi, payload)
	}
}

// Simulated is a mesh.Radio backed by an in-process Bus, with a fixed RSSI
// reported for every delivered advertisement (no real path loss to model).
type Simulated struct {
	bus  *Bus
	mac  mesh.MAC
	rssi int8

	mu        sync.Mutex
	scanning  bool
	cancelCtx context.CancelFunc
	advPayload []byte
}

// NewSimulated attaches a new Simulated radio to bus, identified by mac,
// reporting rssi for every advertisement it observes.
func NewSimulated(bus *Bus, mac mesh.MAC, rssi int8) *Simulated {
	return &Simulated{bus: bus, mac: mac, rssi: rssi}
}

// StartScan implements mesh.Radio.
func (s *Simulated) StartScan(ctx context.Context, cb mesh.ScanCallback) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return fmt.Errorf("radio %x: scan already in progress", s.mac)
	}
	s.scanning = true
	scanCtx, cancel := context.WithCancel(ctx)
	s.cancelCtx = cancel
	s.mu.Unlock()

	s.bus.attach(s, cb)
	go func() {
		<-scanCtx.Done()
		s.bus.detach(s)
	}()
	return nil
}

// StopScan implements mesh.Radio.
func (s *Simulated) StopScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scanning {
		return nil
	}
	s.scanning = false
	if s.cancelCtx != nil {
		s.cancelCtx()
		s.cancelCtx = nil
	}
	s.bus.detach(s)
	return nil
}

// StartAdvertise implements mesh.Radio. Simulated ignores the interval
// parameters and republishes the payload to the bus immediately; Core
// itself owns the cadence by calling StartAdvertise once per cycle.
func (s *Simulated) StartAdvertise(params mesh.AdvParams, payload []byte) error {
	s.mu.Lock()
	s.advPayload = append([]byte(nil), payload...)
	s.mu.Unlock()
	s.bus.publish(s, s.mac, s.rssi, payload)
	return nil
}

// StopAdvertise implements mesh.Radio.
func (s *Simulated) StopAdvertise() error {
	s.mu.Lock()
	s.advPayload = nil
	s.mu.Unlock()
	return nil
}
