// Package mesh implements the BLE aura-mesh protocol core: the wire
// codec for the three advertisement formats, the hash-indexed peer
// table with stability/aging semantics, and the per-mode decision state
// machines (aura, device, lvlup-token, overseer, none), including the
// overseer-override path in device mode.
//
// The package is transport-agnostic: it never touches a radio, a flash
// chip, or a GPIO pin directly. Those are External Collaborators (see
// internal/radio, internal/store, internal/led) injected into a Core at
// construction time. This mirrors the split between RFC 5880 session
// logic and netio transport in the BFD daemon this module is modeled on.
package mesh
