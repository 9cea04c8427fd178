package mesh

import (
	"context"
	"time"
)

// ScanCallback receives one received advertisement as it arrives.
// Payload is the raw Bluetooth advertising-data TLV buffer; Core scans
// it for a manufacturer-data element and dispatches accordingly.
// Implementations must invoke ScanCallback synchronously and return
// promptly (spec.md §5: "no sleeps, no I/O" in the callback path).
type ScanCallback func(peer MAC, rssi int8, payload []byte)

// AdvParams configures an advertising interval range (spec.md §6: "slow
// ≈ 1s, fast ≈ 100ms").
type AdvParams struct {
	IntervalMin time.Duration
	IntervalMax time.Duration
}

// SlowAdvParams and FastAdvParams are the two interval profiles modes
// switch between (AURA/DEVICE/OVERSEER/NONE advertise slow; LVLUP_TOKEN
// switches to fast once it latches a target, spec.md §4.6).
var (
	SlowAdvParams = AdvParams{IntervalMin: 900 * time.Millisecond, IntervalMax: 1100 * time.Millisecond}
	FastAdvParams = AdvParams{IntervalMin: 90 * time.Millisecond, IntervalMax: 110 * time.Millisecond}
)

// Radio is the external radio boundary (spec.md §6): passive scan with a
// cooperative callback, and advertising with a configurable interval and
// manufacturer-data payload. Implementations live in internal/radio.
type Radio interface {
	StartScan(ctx context.Context, cb ScanCallback) error
	StopScan() error
	StartAdvertise(params AdvParams, payload []byte) error
	StopAdvertise() error
}
