package mesh

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Config carries the RSSI thresholds and timing values spec.md §6 lists
// as compile-time constants, as runtime-overridable fields (see
// SPEC_FULL.md §10.2). Every other constant in constants.go, and the
// wire-format lengths in wire.go, remain Go consts.
type Config struct {
	RSSIThreshold           int8
	LvlupTokenRSSIThreshold int8
	StartupDelay            time.Duration
	CycleDuration           time.Duration
	BlinkInterval           time.Duration
	SettleDelay             time.Duration
	PeerDiscoveryJitterMS   int
}

// DefaultConfig returns the spec.md §6 default values.
func DefaultConfig() Config {
	return Config{
		RSSIThreshold:           DefaultRSSIThreshold,
		LvlupTokenRSSIThreshold: DefaultLvlupTokenRSSIThresh,
		StartupDelay:            DefaultStartupDelay,
		CycleDuration:           DefaultCycleDuration,
		BlinkInterval:           DefaultBlinkInterval,
		SettleDelay:             DefaultSettleDelay,
		PeerDiscoveryJitterMS:   DefaultPeerDiscoveryJitterMS,
	}
}

// Core owns every piece of process-wide mutable protocol state —
// device_info, static_addr, the peer table, mode_state, and the
// outbound advertisement payload — as a single value, per the "Global
// mutable state... represent as a single Core value" design note
// (spec.md §9). mu guards every field the scan callback can touch
// concurrently with the end-of-cycle handler (spec.md §5).
type Core struct {
	mu sync.Mutex

	cfg     Config
	logger  *slog.Logger
	radio   Radio
	store   Store
	led     LEDManager
	metrics Metrics
	reset   Resetter

	info       DeviceInfo
	staticAddr StaticAddr
	peers      *PeerTable
	state      ModeState
	auraCount  [2][LevelsPerAffinity]int

	advData     []byte
	advParams   AdvParams
	modeChanged bool
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithConfig overrides the default timing/threshold configuration.
func WithConfig(cfg Config) Option {
	return func(c *Core) { c.cfg = cfg }
}

// WithMetrics attaches an observability sink.
func WithMetrics(m Metrics) Option {
	return func(c *Core) { c.metrics = m }
}

// WithResetter attaches the system-reset boundary.
func WithResetter(r Resetter) Option {
	return func(c *Core) { c.reset = r }
}

// NewCore constructs a Core around its required external collaborators.
// Callers must load (or generate) DeviceInfo and StaticAddr themselves —
// typically via LoadDeviceInfo/LoadStaticAddr and GenerateStaticAddr —
// since a failure generating the identity address is an init failure
// that should abort startup (spec.md §7), before any Core exists to own.
func NewCore(logger *slog.Logger, radio Radio, store Store, led LEDManager, info DeviceInfo, staticAddr StaticAddr, opts ...Option) *Core {
	c := &Core{
		cfg:        DefaultConfig(),
		logger:     logger,
		radio:      radio,
		store:      store,
		led:        led,
		metrics:    noopMetrics{},
		reset:      nil,
		info:       info,
		staticAddr: staticAddr,
		peers:      NewPeerTable(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	return c
}

// DeviceInfo returns a copy of the current device identity/configuration.
func (c *Core) DeviceInfo() DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// StaticAddr returns the node's static-random address.
func (c *Core) StaticAddr() MAC {
	return c.staticAddr.MAC
}

// Peers returns a snapshot of every established peer slot, for
// inspection tools (internal/mesh itself never iterates slots this way).
func (c *Core) Peers() []PeerSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []PeerSlot
	c.peers.Range(func(slot PeerSlot) {
		out = append(out, slot)
	})
	return out
}

// Reset invokes the configured system-reset primitive, if any.
func (c *Core) Reset(ctx context.Context) error {
	if c.reset == nil {
		return nil
	}
	return c.reset.Reset(ctx)
}

// SetMode zeroes mode_state, runs the startup blink sequence (onboard,
// green, and red LEDs lit for cfg.StartupDelay), then initializes the
// new mode's variant (spec.md §9 union-zeroing rule; startup sequence
// grounded on the firmware's set_mode). It blocks for the blink
// duration, so the caller's cycle loop must invoke it outside any
// latency-sensitive path.
func (c *Core) SetMode(ctx context.Context, mode Mode) error {
	c.mu.Lock()
	previous := c.info.Mode
	c.state = ModeState{}
	c.info.Mode = mode
	c.mu.Unlock()

	c.led.SetState(LEDOnboard, LEDOn)
	c.led.SetState(LEDGreen, LEDOn)
	c.led.SetState(LEDRed, LEDOn)
	if err := c.led.Operate(ctx, c.cfg.StartupDelay, c.cfg.BlinkInterval); err != nil {
		c.logger.Warn("startup blink interrupted", "error", err)
	}
	c.led.SetState(LEDOnboard, LEDOff)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch mode {
	case ModeAura:
		c.initAura()
	case ModeDevice:
		c.initDevice()
	case ModeLvlupToken:
		c.initLvlupToken()
	case ModeOverseer:
		c.initOverseer()
	case ModeNone:
		c.initNone()
	}
	c.peers.Reset()
	c.metrics.ObserveModeTransition(previous, mode)
	return nil
}

// setAdvData replaces the outbound advertisement payload. Must be
// called with mu held.
func (c *Core) setAdvData(buf []byte) {
	c.advData = append(c.advData[:0], buf...)
}

// onAdvertisement is the scan callback (spec.md §5): it must complete
// promptly and perform no I/O. It decodes the payload and dispatches by
// frame kind under the lock that also guards end-of-cycle processing.
func (c *Core) onAdvertisement(peer MAC, rssi int8, payload []byte) {
	frame, ok := DecodeAdvertisement(payload)
	if !ok {
		c.metrics.ObserveFrameDropped("malformed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Kind {
	case FrameKindMesh:
		c.dispatchPeerFrame(peer, rssi, frame.Mesh)
	case FrameKindMaster:
		c.handleMasterFrame(frame.Master)
	case FrameKindOverseer:
		c.dispatchOverseerFrame(peer, rssi, frame.Overseer)
	}
}

// dispatchPeerFrame implements the tagged-dispatch design note (spec.md
// §9: "an implementation should use a tagged enum match over mode at the
// dispatch sites") in place of the firmware's function-pointer table.
func (c *Core) dispatchPeerFrame(peer MAC, rssi int8, f MeshFrame) {
	switch c.info.Mode {
	case ModeAura:
		c.onAuraPeer(f)
	case ModeDevice:
		c.onDevicePeer(peer, rssi, f)
	case ModeLvlupToken:
		c.onLvlupTokenPeer(peer, rssi, f)
	case ModeOverseer:
		c.onOverseerPeer(peer, f)
	case ModeNone:
		// NONE mode ignores all peers except master advertisements
		// (spec.md §4.8).
	}
}

// dispatchOverseerFrame routes a decoded overseer advertisement. Only
// DEVICE mode consults overseer frames (spec.md §4.5); every other mode
// ignores them.
func (c *Core) dispatchOverseerFrame(peer MAC, rssi int8, of OverseerFrame) {
	if c.info.Mode == ModeDevice {
		c.onDeviceOverseerFrame(peer, rssi, of)
	}
}

// endOfCycle runs the current mode's end-of-cycle handler. Must be
// called with mu held.
func (c *Core) endOfCycle() {
	switch c.info.Mode {
	case ModeAura:
		c.endOfCycleAura()
	case ModeDevice:
		c.endOfCycleDevice()
	case ModeLvlupToken:
		c.endOfCycleLvlupToken()
	case ModeOverseer:
		c.endOfCycleOverseer()
	case ModeNone:
		c.endOfCycleNone()
	}
}

// runCycle executes one scan → jitter → advertise → settle →
// end-of-cycle iteration (spec.md §5). The jitter delay is a
// scan-only window serviced by the LED driver, desynchronizing
// neighboring nodes' cycles.
func (c *Core) runCycle(ctx context.Context) error {
	if err := c.radio.StartScan(ctx, c.onAdvertisement); err != nil {
		c.logger.Warn("scan start failed, retrying next cycle", "error", err)
	}

	jitter := time.Duration(rand.IntN(c.cfg.PeerDiscoveryJitterMS+1)) * time.Millisecond
	if err := c.led.Operate(ctx, jitter, c.cfg.BlinkInterval); err != nil {
		return fmt.Errorf("jitter window: %w", err)
	}

	c.mu.Lock()
	payload := append([]byte(nil), c.advData...)
	params := c.advParams
	c.mu.Unlock()

	if err := c.radio.StartAdvertise(params, payload); err != nil {
		c.logger.Warn("advertise start failed, retrying next cycle", "error", err)
	} else {
		c.metrics.ObserveAdvertisementSent(len(payload))
	}

	remaining := c.cfg.CycleDuration - jitter
	if remaining < 0 {
		remaining = 0
	}
	if err := c.led.Operate(ctx, remaining, c.cfg.BlinkInterval); err != nil {
		return fmt.Errorf("cycle window: %w", err)
	}

	if err := c.radio.StopScan(); err != nil {
		c.logger.Warn("scan stop failed", "error", err)
	}
	if err := c.radio.StopAdvertise(); err != nil {
		c.logger.Warn("advertise stop failed", "error", err)
	}

	select {
	case <-time.After(c.cfg.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	c.peers.Age()
	c.endOfCycle()
	changed := c.modeChanged
	c.modeChanged = false
	nextMode := c.info.Mode
	established := c.peers.EstablishedCount()
	c.mu.Unlock()

	c.metrics.ObserveEstablishedPeers(established)

	if changed {
		return c.SetMode(ctx, nextMode)
	}
	return nil
}

// Run drives the cycle loop until ctx is canceled (spec.md §5:
// "Cancellation... None — the cycle is the unit of work and always runs
// to completion"; Run's loop boundary is the Go analogue, completing the
// in-flight cycle before observing cancellation).
func (c *Core) Run(ctx context.Context) error {
	for {
		start := time.Now()
		if err := c.runCycle(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		c.metrics.ObserveCycleDuration(time.Since(start))

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
