package mesh

import "fmt"

const unknownFmt = "Unknown(%d)"

// Mode is the operating role of a node (spec.md §1, §3).
type Mode uint8

const (
	ModeNone Mode = iota
	ModeAura
	ModeDevice
	ModeLvlupToken
	ModeOverseer
)

// modeNames maps Mode values to human-readable strings.
var modeNames = [...]string{"None", "Aura", "Device", "LvlupToken", "Overseer"}

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf(unknownFmt, uint8(m))
}

// Affinity is the node's team (spec.md §3).
type Affinity uint8

const (
	AffinityUnity Affinity = iota
	AffinityMagic
	AffinityTechno
)

var affinityNames = [...]string{"Unity", "Magic", "Techno"}

// String returns the human-readable name of the affinity.
func (a Affinity) String() string {
	if int(a) < len(affinityNames) {
		return affinityNames[a]
	}
	return fmt.Sprintf(unknownFmt, uint8(a))
}

// MAC is a 6-byte hardware address, used both for the node's own
// static-random address and for observed peer addresses.
type MAC [6]byte

// String renders the MAC in colon-hex notation.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is the zero MAC.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// DeviceInfo is the persisted identity and configuration of a node
// (spec.md §3, storage ID 1).
type DeviceInfo struct {
	Mode                 Mode
	Affinity             Affinity
	Level                uint8
	DynamicRSSIThreshold int8
}

// DefaultDeviceInfo is the value used when storage ID 1 is absent
// (spec.md §3: "Recreated with defaults").
func DefaultDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Mode:                 ModeNone,
		Affinity:             AffinityUnity,
		Level:                0,
		DynamicRSSIThreshold: 0,
	}
}

// StaticAddr is the persisted random-static MAC (spec.md §3, storage
// ID 2). AddrType mirrors the 1-byte address-type prefix of the 7-byte
// persisted record (spec.md §6); this implementation always uses
// AddrTypeRandomStatic but preserves the field for wire fidelity.
type StaticAddr struct {
	AddrType byte
	MAC      MAC
}

// AddrTypeRandomStatic is the only address type this implementation
// persists (random-static, BT_ADDR_LE_RANDOM in the original firmware).
const AddrTypeRandomStatic byte = 0x01
