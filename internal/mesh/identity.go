package mesh

import (
	"crypto/rand"
	"fmt"
)

// GenerateStaticAddr creates a fresh random-static MAC (spec.md §3):
// uniformly random except the top two bits of the last byte, which are
// forced to 11 per the static-random addressing convention. Identity
// generation uses crypto/rand rather than a jitter-grade source, the
// same security-relevant/non-critical split the discriminator allocator
// this module is modeled on makes for its unique-value generation.
func GenerateStaticAddr() (StaticAddr, error) {
	var addr StaticAddr
	addr.AddrType = AddrTypeRandomStatic
	if _, err := rand.Read(addr.MAC[:]); err != nil {
		return StaticAddr{}, fmt.Errorf("generate static address: %w", err)
	}
	addr.MAC[5] |= 0xC0
	return addr, nil
}
