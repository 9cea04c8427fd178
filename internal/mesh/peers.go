package mesh

// This file implements the peer table (spec.md §4.2): a fixed-capacity,
// hash-indexed, open-addressed table of recently observed AURA peers,
// with linear probing and a signed stability counter that debounces
// both admission (detection streak) and eviction (miss streak).
//
// Only MODE_AURA peers are ever admitted; mode handlers filter on the
// decoded frame's Mode before calling Observe. The table itself carries
// no mode field, matching the peer-slot layout in spec.md §3.

// PeerState is the lifecycle state of a table slot (spec.md §3).
type PeerState uint8

const (
	// PeerEmpty has never been occupied; a linear probe can stop here.
	PeerEmpty PeerState = iota
	// PeerOccupied holds a peer currently being tracked.
	PeerOccupied
	// PeerDeleted held a peer that aged out. It is available for reuse
	// but a probe must continue past it: a live match may sit further
	// along the same probe chain (spec.md §4.2).
	PeerDeleted
)

// PeerSlot is one entry in the peer table (spec.md §3).
type PeerSlot struct {
	MAC      MAC
	Affinity Affinity
	Level    uint8
	State    PeerState

	// StabilityCounter ranges [-PeerMissThreshold, PeerDetectionThreshold].
	// Positive is a consecutive-detection streak, negative a
	// consecutive-miss streak, zero is transitional.
	StabilityCounter int8

	// DetectedThisCycle is set by Observe and consumed by Age.
	DetectedThisCycle bool

	// Established is latched once StabilityCounter first reaches
	// PeerDetectionThreshold; it is never cleared except by deletion.
	Established bool
}

// PeerTable is the fixed MaxPeers-capacity peer table. The zero value is
// not ready for use; construct with NewPeerTable.
type PeerTable struct {
	slots [MaxPeers]PeerSlot
}

// NewPeerTable returns an empty peer table.
func NewPeerTable() *PeerTable {
	return &PeerTable{}
}

// rotl1 rotates an 8-bit value left by one bit.
func rotl1(x uint8) uint8 {
	return (x << 1) | (x >> 7)
}

// hashMAC implements hash_mac (spec.md §4.2): start at 0, and for each
// address byte XOR it into the accumulator then rotate left one bit.
func hashMAC(mac MAC) int {
	var h uint8
	for _, b := range mac {
		h = rotl1(h ^ b)
	}
	return int(h) % MaxPeers
}

// probe locates mac's slot, or the slot a new entry for mac should
// occupy. found is true only when an occupied slot already holds mac. A
// negative index means the table is saturated: one full trip around the
// table found no empty, deleted, or matching slot.
func (t *PeerTable) probe(mac MAC) (idx int, found bool) {
	idx = hashMAC(mac)
	firstDeleted := -1
	for i := 0; i < MaxPeers; i++ {
		s := &t.slots[idx]
		switch s.State {
		case PeerEmpty:
			if firstDeleted >= 0 {
				return firstDeleted, false
			}
			return idx, false
		case PeerDeleted:
			if firstDeleted < 0 {
				firstDeleted = idx
			}
		case PeerOccupied:
			if s.MAC == mac {
				return idx, true
			}
		}
		idx = (idx + HashProbeStep) % MaxPeers
	}
	if firstDeleted >= 0 {
		return firstDeleted, false
	}
	return -1, false
}

// Observe implements Observe(mac, affinity, level) (spec.md §4.2). A
// slot already marked detected this cycle is left untouched — this is
// what prevents a duplicate frame within one cycle from double-counting.
// Observe reports false without effect if the table is saturated
// (spec.md §7: peer-table saturation is a silent no-op).
func (t *PeerTable) Observe(mac MAC, affinity Affinity, level uint8) bool {
	idx, found := t.probe(mac)
	if idx < 0 {
		return false
	}
	s := &t.slots[idx]
	if found {
		if s.DetectedThisCycle {
			return true
		}
		s.Affinity = affinity
		s.Level = level
		s.DetectedThisCycle = true
		return true
	}
	*s = PeerSlot{
		MAC:               mac,
		Affinity:          affinity,
		Level:             level,
		State:             PeerOccupied,
		StabilityCounter:  1,
		DetectedThisCycle: true,
	}
	return true
}

// Age runs the once-per-cycle aging pass (spec.md §4.2). Every occupied
// slot transitions its stability counter: a detected slot's counter
// jumps to 1 out of a miss-streak or climbs toward PeerDetectionThreshold
// (latching Established on reaching it); an undetected slot's counter
// jumps to -1 out of a detect-streak or falls, and the slot is deleted
// once it reaches -PeerMissThreshold.
func (t *PeerTable) Age() {
	for i := range t.slots {
		s := &t.slots[i]
		if s.State != PeerOccupied {
			continue
		}
		if s.DetectedThisCycle {
			if s.StabilityCounter < 0 {
				s.StabilityCounter = 1
			} else if s.StabilityCounter < PeerDetectionThreshold {
				s.StabilityCounter++
			}
			if s.StabilityCounter >= PeerDetectionThreshold {
				s.Established = true
			}
			s.DetectedThisCycle = false
			continue
		}
		if s.StabilityCounter > 0 {
			s.StabilityCounter = -1
		} else {
			s.StabilityCounter--
		}
		if s.StabilityCounter <= -PeerMissThreshold {
			t.slots[i] = PeerSlot{State: PeerDeleted}
		}
	}
}

// IsValidForCalculation implements the valid-for-calculation predicate
// (spec.md §4.2): only established, occupied peers count toward
// mode-handler aggregates.
func (s PeerSlot) IsValidForCalculation() bool {
	return s.State == PeerOccupied && s.Established
}

// Range calls fn for every established, occupied peer slot.
func (t *PeerTable) Range(fn func(PeerSlot)) {
	for i := range t.slots {
		s := t.slots[i]
		if s.IsValidForCalculation() {
			fn(s)
		}
	}
}

// Count returns the number of occupied slots, established or not
// (spec.md §8 invariant: peer_count = |{slots where state == OCCUPIED}|).
func (t *PeerTable) Count() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].State == PeerOccupied {
			n++
		}
	}
	return n
}

// EstablishedCount returns the number of established, occupied peer
// slots.
func (t *PeerTable) EstablishedCount() int {
	n := 0
	t.Range(func(PeerSlot) { n++ })
	return n
}

// Reset clears every slot, discarding all tracked peers.
func (t *PeerTable) Reset() {
	for i := range t.slots {
		t.slots[i] = PeerSlot{}
	}
}
