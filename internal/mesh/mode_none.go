package mesh

// This file implements NONE mode (spec.md §4.8): the inert idle role.
// Master advertisements still reach handleMasterFrame regardless of
// mode (spec.md §4.9); dispatchPeerFrame's ModeNone case is empty, so
// mesh peer frames are ignored.

func (c *Core) initNone() {
	c.state = ModeState{Kind: ModeStateNone}
	c.led.SetState(LEDGreen, LEDBlinkOnce)
	c.led.SetState(LEDRed, LEDBlinkOnce)
	c.advParams = SlowAdvParams
	buf := EncodeMeshFrame(c.info, false)
	c.setAdvData(buf[:])
}

func (c *Core) endOfCycleNone() {
	// Idle: nothing to recompute each cycle.
}
