package mesh

// This file implements DEVICE mode (spec.md §4.5): a physical output
// switched by the surrounding AURA population, with an overseer-lock
// override tracked as a MAC-locked sub-state.

func (c *Core) initDevice() {
	isOn := c.info.Level == 0
	c.state = ModeState{Kind: ModeStateDevice, Device: DeviceModeState{IsOn: isOn}}

	c.setDeviceOutputs(isOn, false)
	c.advParams = SlowAdvParams
	buf := EncodeMeshFrame(c.info, isOn)
	c.setAdvData(buf[:])
}

// onDevicePeer admits only active AURA peers, applying the optional
// dynamic-RSSI gate (spec.md §4.5).
func (c *Core) onDevicePeer(peer MAC, rssi int8, f MeshFrame) {
	if f.Mode != ModeAura || !f.State {
		return
	}
	if c.info.DynamicRSSIThreshold != 0 && rssi < c.info.DynamicRSSIThreshold {
		return
	}
	c.peers.Observe(peer, f.Affinity, f.Level)
}

// onDeviceOverseerFrame tracks the strongest-RSSI overseer observed this
// cycle and caches its commanded state for our (affinity, level)
// (spec.md §4.5).
func (c *Core) onDeviceOverseerFrame(peer MAC, rssi int8, of OverseerFrame) {
	if c.info.DynamicRSSIThreshold != 0 && rssi < c.info.DynamicRSSIThreshold {
		return
	}

	d := &c.state.Device
	if d.OverseerDetectedThisCycle && peer != d.OverseerMAC && rssi <= d.OverseerRSSI {
		return
	}

	level := c.info.Level
	if int(level) >= len(of.Magic) {
		level = uint8(len(of.Magic) - 1)
	}

	var commanded bool
	switch c.info.Affinity {
	case AffinityMagic:
		commanded = of.Magic[level] != 0
	case AffinityTechno:
		commanded = of.Techno[level] != 0
	default: // UNITY: commanded = magic_bit || techno_bit
		commanded = of.Magic[level] != 0 || of.Techno[level] != 0
	}

	d.OverseerMAC = peer
	d.OverseerRSSI = rssi
	d.OverseerDetectedThisCycle = true
	d.OverseerState = commanded
}

// ageOverseerTracking implements the overseer-tracking end-of-cycle
// aging and lock-acquisition rules (spec.md §4.5).
func (c *Core) ageOverseerTracking() {
	d := &c.state.Device

	if !d.OverseerDetectedThisCycle {
		if d.OverseerStabilityCounter > 0 {
			d.OverseerStabilityCounter = -1
		} else {
			d.OverseerStabilityCounter--
		}
		if d.OverseerStabilityCounter <= -OverseerMissThreshold {
			d.UseOverseer = false
			d.TrackedMAC = MAC{}
			d.OverseerRSSI = 0
			d.OverseerStabilityCounter = 0
		}
		return
	}

	switch {
	case !d.UseOverseer && d.TrackedMAC.IsZero():
		d.TrackedMAC = d.OverseerMAC
		d.OverseerStabilityCounter = 1
	case d.OverseerMAC == d.TrackedMAC:
		if d.OverseerStabilityCounter < OverseerDetectionThreshold {
			d.OverseerStabilityCounter++
		}
		if d.OverseerStabilityCounter >= OverseerDetectionThreshold {
			d.UseOverseer = true
		}
	default:
		if d.OverseerStabilityCounter > 0 {
			d.OverseerStabilityCounter = -1
		} else {
			d.OverseerStabilityCounter--
		}
		if d.OverseerStabilityCounter <= -OverseerMissThreshold {
			d.TrackedMAC = d.OverseerMAC
			d.OverseerStabilityCounter = 1
			d.UseOverseer = false
		}
	}
	d.OverseerDetectedThisCycle = false
}

// countStablePeersForDevice refills the shared aura_level_count scratch
// matrix from the current established-peer population (spec.md §4.5).
func (c *Core) countStablePeersForDevice() {
	for i := range c.auraCount {
		for j := range c.auraCount[i] {
			c.auraCount[i][j] = 0
		}
	}
	c.peers.Range(func(p PeerSlot) {
		if p.Affinity == AffinityUnity {
			lvl := SplitUnityLevel(p.Level, c.info.Affinity)
			c.auraCount[FriendlyAurasIdx][lvl]++
			return
		}
		if p.Affinity == c.info.Affinity && p.Level <= MaxAuraLevel {
			c.auraCount[FriendlyAurasIdx][p.Level]++
			return
		}
		if c.info.Affinity != AffinityUnity {
			c.auraCount[HostileAurasIdx][p.Level]++
		}
	})
}

// deriveDeviceIsOn scans levels from HOSTILE_ENVIRONMENT_LEVEL down to
// device_info.level, returning the commanded on/off state at the first
// non-empty level (spec.md §4.5). suppressed is true when a hostile
// majority forced the device off.
func (c *Core) deriveDeviceIsOn() (isOn bool, suppressed bool) {
	for level := HostileEnvironmentLevel; level >= int(c.info.Level); level-- {
		friendly := c.auraCount[FriendlyAurasIdx][level]
		hostile := c.auraCount[HostileAurasIdx][level]
		if friendly == 0 && hostile == 0 {
			continue
		}
		if friendly >= hostile {
			return true, false
		}
		return false, true
	}
	return c.info.Level == 0, false
}

// setDeviceOutputs applies the green/red LED pair and the output pin for
// a given (isOn, suppressed) combination (spec.md §4.5).
func (c *Core) setDeviceOutputs(isOn, suppressed bool) {
	if isOn {
		c.led.SetState(LEDGreen, LEDOn)
		c.led.SetState(LEDDeviceOutput, LEDOn)
	} else {
		c.led.SetState(LEDGreen, LEDBlinkOnce)
		c.led.SetState(LEDDeviceOutput, LEDOff)
	}
	if suppressed {
		c.led.SetState(LEDRed, LEDOn)
	} else {
		c.led.SetState(LEDRed, LEDOff)
	}
}

func (c *Core) endOfCycleDevice() {
	c.ageOverseerTracking()

	d := &c.state.Device
	var newIsOn, suppressed bool
	if d.UseOverseer {
		newIsOn = d.OverseerState
	} else {
		c.countStablePeersForDevice()
		newIsOn, suppressed = c.deriveDeviceIsOn()
	}

	if newIsOn == d.IsOn {
		return
	}
	d.IsOn = newIsOn
	c.setDeviceOutputs(newIsOn, suppressed)
	buf := EncodeMeshFrame(c.info, newIsOn)
	c.setAdvData(buf[:])
}
