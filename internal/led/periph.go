package led

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

// Entry binds one mesh.LEDIndex to a physical GPIO line. Polarity inverts
// the On/Off sense for lines wired active-low (spec.md §12: "per-LED
// polarity", carried from original_source/src/main.c's led_array.polarity).
type Entry struct {
	Index    mesh.LEDIndex
	Pin      string
	Polarity Polarity
}

// Polarity selects how a logical On/Off state maps to the physical pin
// level.
type Polarity int

const (
	// Normal drives the pin high for On, low for Off.
	Normal Polarity = iota
	// Inverted drives the pin low for On, high for Off.
	Inverted
)

// Periph is a real hardware mesh.LEDManager backed by periph.io GPIO pins,
// grounded on the wshat/lcd drivers' host.Init()+gpioreg.ByName()+pin.Out
// idiom.
type Periph struct {
	mu      sync.Mutex
	pins    map[mesh.LEDIndex]gpio.PinOut
	polar   map[mesh.LEDIndex]Polarity
	states  map[mesh.LEDIndex]mesh.LEDState
	blinkOn bool
}

// NewPeriph initializes the periph.io host stack and resolves each entry's
// named pin, defaulting every line to Off.
func NewPeriph(entries []Entry) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	p := &Periph{
		pins:   make(map[mesh.LEDIndex]gpio.PinOut, len(entries)),
		polar:  make(map[mesh.LEDIndex]Polarity, len(entries)),
		states: make(map[mesh.LEDIndex]mesh.LEDState, len(entries)),
	}
	for _, e := range entries {
		pin := gpioreg.ByName(e.Pin)
		if pin == nil {
			return nil, fmt.Errorf("gpio pin %q not found for led index %d", e.Pin, e.Index)
		}
		if err := pin.Out(p.level(e.Polarity, false)); err != nil {
			return nil, fmt.Errorf("init gpio pin %q: %w", e.Pin, err)
		}
		p.pins[e.Index] = pin
		p.polar[e.Index] = e.Polarity
		p.states[e.Index] = mesh.LEDOff
	}
	return p, nil
}

func (p *Periph) level(polarity Polarity, on bool) gpio.Level {
	if polarity == Inverted {
		on = !on
	}
	if on {
		return gpio.High
	}
	return gpio.Low
}

// SetState implements mesh.LEDManager.
func (p *Periph) SetState(index mesh.LEDIndex, state mesh.LEDState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[index] = state
	pin, ok := p.pins[index]
	if !ok {
		return
	}
	switch state {
	case mesh.LEDOn:
		pin.Out(p.level(p.polar[index], true))
	case mesh.LEDOff:
		pin.Out(p.level(p.polar[index], false))
	default:
		// BlinkFast/BlinkOnce are driven by Operate's polling loop.
	}
}

// Operate drives BlinkFast/BlinkOnce states for the given total duration,
// toggling at the given blink interval, analogous to the firmware's
// operate_leds(total_ms, blink_ms).
func (p *Periph) Operate(ctx context.Context, total, blink time.Duration) error {
	if blink <= 0 {
		blink = total
	}
	deadline := time.Now().Add(total)
	ticker := time.NewTicker(blink)
	defer ticker.Stop()

	blinkedOnce := make(map[mesh.LEDIndex]bool)
	for {
		if !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(blinkedOnce)
		}
	}
}

func (p *Periph) tick(blinkedOnce map[mesh.LEDIndex]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blinkOn = !p.blinkOn
	for index, state := range p.states {
		pin, ok := p.pins[index]
		if !ok {
			continue
		}
		switch state {
		case mesh.LEDBlinkFast:
			pin.Out(p.level(p.polar[index], p.blinkOn))
		case mesh.LEDBlinkOnce:
			if !blinkedOnce[index] {
				pin.Out(p.level(p.polar[index], true))
				blinkedOnce[index] = true
			} else {
				pin.Out(p.level(p.polar[index], false))
			}
		}
	}
}
