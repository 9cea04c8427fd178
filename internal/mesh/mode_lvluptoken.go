package mesh

// This file implements LVLUP_TOKEN mode (spec.md §4.6): a short-lived
// role that transfers a one-shot level-up to exactly one qualifying
// aura, then broadcasts the grant as a targeted master command.
//
// The peer table is not used in this mode; the single latched target is
// carried directly in LvlupTokenModeState (spec.md §4.6: "the table is
// repurposed as a single-slot latch").

func (c *Core) initLvlupToken() {
	c.state = ModeState{Kind: ModeStateLvlupToken}
	c.led.SetState(LEDGreen, LEDOn)
	c.led.SetState(LEDRed, LEDOff)
	c.advParams = SlowAdvParams
	buf := EncodeMeshFrame(c.info, true)
	c.setAdvData(buf[:])
}

func clampAuraLevel(level uint8) uint8 {
	if level > MaxAuraLevel {
		return MaxAuraLevel
	}
	return level
}

// onLvlupTokenPeer implements the per-advertisement matching rules
// (spec.md §4.6). Rule 1 promotes a non-UNITY aura straight into a
// UNITY one; rule 2 grants exactly one level on the matching axis to a
// peer one level below self.
func (c *Core) onLvlupTokenPeer(peer MAC, rssi int8, f MeshFrame) {
	lt := &c.state.LvlupToken
	if lt.HasTarget || rssi < c.cfg.LvlupTokenRSSIThreshold || f.Mode != ModeAura {
		return
	}

	if c.info.Affinity == AffinityUnity && f.Affinity != AffinityUnity {
		var target DeviceInfo
		switch f.Affinity {
		case AffinityMagic:
			target = DeviceInfo{Mode: ModeAura, Affinity: AffinityUnity, Level: packUnityLevel(clampAuraLevel(f.Level), 0)}
		case AffinityTechno:
			target = DeviceInfo{Mode: ModeAura, Affinity: AffinityUnity, Level: packUnityLevel(0, clampAuraLevel(f.Level))}
		default:
			return
		}
		c.latchLvlupTarget(peer, target)
		return
	}

	if c.info.Level == 0 {
		return
	}

	var currentLevel uint8
	switch {
	case f.Affinity == AffinityUnity:
		currentLevel = SplitUnityLevel(f.Level, c.info.Affinity)
	case f.Affinity == c.info.Affinity:
		currentLevel = f.Level
	default:
		return
	}
	if currentLevel != c.info.Level-1 {
		return
	}

	var target DeviceInfo
	if f.Affinity == AffinityUnity {
		if c.info.Affinity == AffinityUnity {
			// Both self and peer are UNITY: rule 2's "preserve the
			// other axis" construction assumes self is granting a
			// single axis, which doesn't generalize here. Not eligible.
			return
		}
		var level uint8
		if c.info.Affinity == AffinityMagic {
			level = packUnityLevel(c.info.Level, SplitUnityLevel(f.Level, AffinityTechno))
		} else {
			level = packUnityLevel(SplitUnityLevel(f.Level, AffinityMagic), c.info.Level)
		}
		target = DeviceInfo{Mode: ModeAura, Affinity: AffinityUnity, Level: level}
	} else {
		target = DeviceInfo{Mode: ModeAura, Affinity: f.Affinity, Level: c.info.Level}
	}
	c.latchLvlupTarget(peer, target)
}

func (c *Core) latchLvlupTarget(peer MAC, target DeviceInfo) {
	lt := &c.state.LvlupToken
	lt.HasTarget = true
	lt.TargetMAC = peer
	lt.TargetInfo = target
	lt.BroadcastCountdown = LvlupTokenBroadcastCountdown
}

// endOfCycleLvlupToken drives the broadcast countdown (spec.md §4.6):
// 3 sends the master grant and switches to fast advertising; 2 merely
// dwells; 1 either re-arms (self.level == 1 tokens don't expire) or
// discharges for good; 0 is quiescent.
func (c *Core) endOfCycleLvlupToken() {
	lt := &c.state.LvlupToken
	if !lt.HasTarget {
		return
	}

	switch lt.BroadcastCountdown {
	case LvlupTokenBroadcastCountdown:
		master := EncodeMasterFrame(MasterFrame{TargetMAC: lt.TargetMAC, Info: lt.TargetInfo})
		c.setAdvData(master[:])
		c.advParams = FastAdvParams
		c.led.SetState(LEDGreen, LEDBlinkFast)
		lt.BroadcastCountdown--
	case 2:
		lt.BroadcastCountdown--
	case 1:
		if c.info.Level == 1 {
			*lt = LvlupTokenModeState{}
			c.advParams = SlowAdvParams
			c.led.SetState(LEDGreen, LEDOn)
			c.led.SetState(LEDRed, LEDOff)
			buf := EncodeMeshFrame(c.info, true)
			c.setAdvData(buf[:])
		} else {
			lt.BroadcastCountdown--
			c.advParams = SlowAdvParams
			c.led.SetState(LEDGreen, LEDOff)
			c.led.SetState(LEDRed, LEDBlinkOnce)
			buf := EncodeMeshFrame(c.info, false)
			c.setAdvData(buf[:])
		}
	default:
		// 0: quiescent, the grant has already been delivered.
	}
}
