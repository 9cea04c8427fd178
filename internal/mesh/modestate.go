package mesh

// ModeStateKind tags which ModeState variant is live (spec.md §3,
// §9: "Union over mode_state... never allow two variants to be live
// simultaneously").
type ModeStateKind uint8

const (
	ModeStateNone ModeStateKind = iota
	ModeStateAura
	ModeStateDevice
	ModeStateLvlupToken
	ModeStateOverseer
)

// AuraModeState is the AURA-mode variant (spec.md §3, §4.4).
type AuraModeState struct {
	IsActive               bool
	IsInHostileEnvironment bool
	HostilityCounter       int
}

// DeviceModeState is the DEVICE-mode variant, including the overseer
// sub-state (spec.md §3, §4.5).
type DeviceModeState struct {
	IsOn bool

	OverseerMAC               MAC
	TrackedMAC                MAC
	OverseerRSSI              int8
	OverseerStabilityCounter  int8
	OverseerDetectedThisCycle bool
	OverseerState             bool
	UseOverseer               bool
}

// LvlupTokenModeState is the LVLUP_TOKEN-mode variant (spec.md §3,
// §4.6).
type LvlupTokenModeState struct {
	HasTarget          bool
	TargetMAC          MAC
	TargetInfo         DeviceInfo
	BroadcastCountdown int
}

// OverseerModeState is the OVERSEER-mode variant (spec.md §3, §4.7).
type OverseerModeState struct {
	BroadcastCountdown int
	Payload            OverseerFrame
}

// ModeState is the tagged union over all per-mode variants. Exactly one
// field is meaningful at a time, selected by Kind; SetMode zeroes the
// whole struct before initializing the new variant, so a stale variant
// can never leak into the next mode's logic (spec.md §9).
type ModeState struct {
	Kind       ModeStateKind
	Aura       AuraModeState
	Device     DeviceModeState
	LvlupToken LvlupTokenModeState
	Overseer   OverseerModeState
}
