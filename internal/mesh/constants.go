package mesh

import "time"

// Protocol constants. Values match the compile-time defines of the
// original firmware. These are plain Go consts and are not runtime
// configurable; only the RSSI thresholds and timing values in the
// Default* block below map onto Config fields.
const (
	// MaxPeers is the fixed capacity of the peer table.
	MaxPeers = 255

	// HashProbeStep is the linear-probing step, coprime with MaxPeers.
	HashProbeStep = 7

	// PeerDetectionThreshold is the stability-counter value at which a
	// peer becomes established. A new peer enters at 1 and each aging
	// pass of a cycle that detected it adds 1, so a peer seen in two
	// consecutive cycles reaches it.
	PeerDetectionThreshold = 3

	// PeerMissThreshold is the number of consecutive misses after which
	// an established peer's slot is deleted.
	PeerMissThreshold = 6

	// OverseerDetectionThreshold is the analogous threshold for locking
	// onto a commanding overseer in device mode.
	OverseerDetectionThreshold = 3

	// OverseerMissThreshold is the analogous miss threshold for dropping
	// a tracked overseer.
	OverseerMissThreshold = 6

	// HostileEnvironmentLevel is the reserved aura level (4) meaning
	// "hostile environment", valid only for AURA mode.
	HostileEnvironmentLevel = 4

	// HostileEnvironmentThreshold is the number of consecutive cycles an
	// aura must observe a hostile environment before deactivating.
	HostileEnvironmentThreshold = 20

	// MaxAuraLevel is the highest ordinary (non-hostile) aura level.
	MaxAuraLevel = 3

	// LevelsPerAffinity is the number of level columns in the
	// aura-level-count scratch matrix (levels 0..4 inclusive).
	LevelsPerAffinity = HostileEnvironmentLevel + 1

	// LvlupTokenBroadcastCountdown is the initial countdown value once a
	// lvlup-token latches a target.
	LvlupTokenBroadcastCountdown = 3

	// OverseerBroadcastCountdown is the cycle count between overseer
	// advertisement recomputation.
	OverseerBroadcastCountdown = 10
)

// Timing defaults. These are the config defaults described in
// SPEC_FULL.md §10.2; a loaded Config may override any of them.
const (
	DefaultRSSIThreshold         int8          = -70
	DefaultLvlupTokenRSSIThresh  int8          = -45
	DefaultStartupDelay          time.Duration = 5000 * time.Millisecond
	DefaultCycleDuration         time.Duration = 3500 * time.Millisecond
	DefaultBlinkInterval         time.Duration = 250 * time.Millisecond
	DefaultPeerDiscoveryJitterMS int           = 120
	DefaultSettleDelay           time.Duration = 100 * time.Millisecond
)

// Scratch-matrix row indices, shared by device-mode and overseer-mode
// counting (spec.md §4.5, §4.7). Device mode partitions by
// friendly/hostile; overseer mode partitions by pure affinity. Both
// share the same 2xLevelsPerAffinity backing array shape.
const (
	FriendlyAurasIdx = 0
	HostileAurasIdx  = 1

	MagicAurasIdx  = 0
	TechnoAurasIdx = 1
)
