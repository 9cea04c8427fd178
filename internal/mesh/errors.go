package mesh

import "errors"

// Sentinel errors for the mesh package. Most protocol errors are not
// propagated at all — per spec.md §7, malformed advertisements, full
// peer tables, and invalid master commands are silently dropped. These
// sentinels exist for the handful of cases a caller legitimately needs to
// branch on (config validation, master-command validation).
var (
	// ErrInvalidUnityLevel indicates a UNITY device_info failed the
	// level-encoding validation in the master-advertisement handler
	// (spec.md §4.9).
	ErrInvalidUnityLevel = errors.New("invalid level encoding for UNITY affinity")

	// ErrWrongTarget indicates a master advertisement's target MAC did
	// not match this node's static address.
	ErrWrongTarget = errors.New("master advertisement target does not match static address")
)
