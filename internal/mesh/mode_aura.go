package mesh

// This file implements AURA mode (spec.md §4.4): a pendant broadcasting
// an affinity and level, with a debounced hostile-environment
// deactivation.

func (c *Core) initAura() {
	c.state = ModeState{Kind: ModeStateAura, Aura: AuraModeState{IsActive: true}}
	c.led.SetState(LEDGreen, LEDOn)
	c.led.SetState(LEDRed, LEDOff)
	c.advParams = SlowAdvParams
	buf := EncodeMeshFrame(c.info, true)
	c.setAdvData(buf[:])
}

// onAuraPeer implements the per-advertisement handler: only MODE_AURA
// peers are considered, and only an opposite-affinity peer broadcasting
// the reserved hostile level counts, and only when our own affinity
// isn't UNITY (spec.md §4.4).
func (c *Core) onAuraPeer(f MeshFrame) {
	if f.Mode != ModeAura {
		return
	}
	if f.Level == HostileEnvironmentLevel && f.Affinity != c.info.Affinity && c.info.Affinity != AffinityUnity {
		c.state.Aura.IsInHostileEnvironment = true
	}
}

// endOfCycleAura implements the hostile-environment debounce (spec.md
// §4.4): IsInHostileEnvironment must be set afresh every cycle to keep
// building the counter, which rises by one per hostile cycle; the aura
// deactivates once HostilityCounter reaches HostileEnvironmentThreshold,
// that is after that many consecutive hostile cycles.
func (c *Core) endOfCycleAura() {
	a := &c.state.Aura

	if a.IsInHostileEnvironment {
		if a.HostilityCounter < HostileEnvironmentThreshold {
			a.HostilityCounter++
		}
		if a.HostilityCounter >= HostileEnvironmentThreshold {
			if a.IsActive {
				a.IsActive = false
				c.led.SetState(LEDGreen, LEDOff)
				c.led.SetState(LEDRed, LEDOn)
				buf := EncodeMeshFrame(c.info, false)
				c.setAdvData(buf[:])
			}
		} else {
			if a.IsActive {
				c.led.SetState(LEDGreen, LEDOn)
			} else {
				c.led.SetState(LEDGreen, LEDOff)
			}
			c.led.SetState(LEDRed, LEDBlinkOnce)
		}
		a.IsInHostileEnvironment = false
		return
	}

	if a.HostilityCounter > 0 {
		a.HostilityCounter--
		if a.HostilityCounter == 0 {
			a.IsActive = true
			c.led.SetState(LEDGreen, LEDOn)
			c.led.SetState(LEDRed, LEDOff)
			buf := EncodeMeshFrame(c.info, true)
			c.setAdvData(buf[:])
		} else {
			c.led.SetState(LEDGreen, LEDOn)
			c.led.SetState(LEDRed, LEDBlinkOnce)
		}
	}
}
