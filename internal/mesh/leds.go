package mesh

import (
	"context"
	"fmt"
	"time"
)

// LEDState is a commanded output state for one LED (spec.md §6).
type LEDState uint8

const (
	LEDOff LEDState = iota
	LEDOn
	LEDBlinkFast
	LEDBlinkOnce
)

var ledStateNames = [...]string{"Off", "On", "BlinkFast", "BlinkOnce"}

func (s LEDState) String() string {
	if int(s) < len(ledStateNames) {
		return ledStateNames[s]
	}
	return fmt.Sprintf(unknownFmt, uint8(s))
}

// LEDIndex names one of the LEDs a node exposes. Green/Red are the mode
// indicator pair every mode drives; Onboard is the status LED driven
// only during the startup blink sequence (spec.md §12 supplement, from
// original_source's separate on-board LED).
type LEDIndex int

const (
	LEDGreen LEDIndex = iota
	LEDRed
	LEDOnboard
	// LEDDeviceOutput is DEVICE_OUTPUT_PIN (spec.md §4.5): a GPIO output
	// line, not a visible indicator, but modeled as just another indexed
	// output so internal/led's single driver interface covers both.
	LEDDeviceOutput
)

// LEDManager is the external LED boundary (spec.md §6): SetState latches
// a per-index state without blocking; Operate is the synchronous driver
// that honors those states for the given interval, analogous to the
// firmware's operate_leds(total_ms, blink_ms). Implementations live in
// internal/led.
type LEDManager interface {
	SetState(index LEDIndex, state LEDState)
	Operate(ctx context.Context, total, blink time.Duration) error
}
