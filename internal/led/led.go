// Package led implements the mesh.LEDManager boundary: a simulated,
// in-memory backend for tests, and a real GPIO-driven backend for Linux
// single-board computers built on periph.io.
package led

import (
	"context"
	"sync"
	"time"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

// Simulated is an in-memory mesh.LEDManager that records the latest
// commanded state per index, grounded on the firmware's LEDManager.c state
// machine (OFF/ON/BLINK_FAST/BLINK_ONCE).
type Simulated struct {
	mu     sync.Mutex
	states map[mesh.LEDIndex]mesh.LEDState
}

// NewSimulated returns an all-off Simulated LED manager.
func NewSimulated() *Simulated {
	return &Simulated{states: make(map[mesh.LEDIndex]mesh.LEDState)}
}

// SetState implements mesh.LEDManager.
func (s *Simulated) SetState(index mesh.LEDIndex, state mesh.LEDState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[index] = state
}

// State returns the last state commanded for index, for test assertions.
func (s *Simulated) State(index mesh.LEDIndex) mesh.LEDState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[index]
}

// Operate implements mesh.LEDManager: it just waits out the interval, since
// Simulated has no physical blink to drive.
func (s *Simulated) Operate(ctx context.Context, total, blink time.Duration) error {
	select {
	case <-time.After(total):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
