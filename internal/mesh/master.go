package mesh

// This file implements the master-advertisement handler (spec.md §4.9):
// a configuration command targeted at this node's static address,
// mutating device_info and requesting a mode transition.

// validMasterDeviceInfo validates a candidate device_info against the
// UNITY encoding rules (spec.md §4.9): a UNITY device with level >= 4 is
// rejected, and a UNITY aura with either split nibble above
// MaxAuraLevel is rejected.
func validMasterDeviceInfo(info DeviceInfo) bool {
	if info.Affinity != AffinityUnity {
		return true
	}
	switch info.Mode {
	case ModeDevice:
		return info.Level < HostileEnvironmentLevel
	case ModeAura:
		magic := SplitUnityLevel(info.Level, AffinityMagic)
		techno := SplitUnityLevel(info.Level, AffinityTechno)
		return magic <= MaxAuraLevel && techno <= MaxAuraLevel
	default:
		return true
	}
}

// validateMasterFrame checks a master advertisement against this node's
// static address and the UNITY encoding rules (spec.md §4.9), returning
// ErrWrongTarget or ErrInvalidUnityLevel when the frame must be rejected.
func validateMasterFrame(f MasterFrame, self MAC) error {
	if f.TargetMAC != self {
		return ErrWrongTarget
	}
	if !validMasterDeviceInfo(f.Info) {
		return ErrInvalidUnityLevel
	}
	return nil
}

// handleMasterFrame implements the master-advertisement handler. Must
// be called with mu held (it runs from the scan callback, spec.md §5).
// Per spec.md §7, rejected commands are dropped silently rather than
// surfaced to the caller; the reason still reaches metrics.
func (c *Core) handleMasterFrame(f MasterFrame) {
	switch err := validateMasterFrame(f, c.staticAddr.MAC); err {
	case nil:
	case ErrWrongTarget:
		return
	default:
		c.metrics.ObserveFrameDropped("invalid_master_command")
		return
	}
	if f.Info == c.info {
		return
	}
	if err := SaveDeviceInfo(c.store, f.Info); err != nil {
		c.logger.Warn("persist device_info failed, continuing with in-memory state", "error", err)
	}
	c.info = f.Info
	c.modeChanged = true
}
