package mesh

// This file implements OVERSEER mode (spec.md §4.7): a commanding node
// that observes the field and periodically broadcasts a complete
// (affinity x level) -> on/off table.

func (c *Core) initOverseer() {
	c.state = ModeState{Kind: ModeStateOverseer, Overseer: OverseerModeState{BroadcastCountdown: OverseerBroadcastCountdown}}
	c.recomputeOverseerPayload()
	c.advParams = SlowAdvParams
	buf := EncodeOverseerFrame(c.state.Overseer.Payload)
	c.setAdvData(buf[:])
}

// onOverseerPeer admits every active AURA peer into the table, with no
// RSSI gate (spec.md §4.7: "same admission as device mode but no RSSI
// filter").
func (c *Core) onOverseerPeer(peer MAC, f MeshFrame) {
	if f.Mode != ModeAura || !f.State {
		return
	}
	c.peers.Observe(peer, f.Affinity, f.Level)
}

func (c *Core) endOfCycleOverseer() {
	o := &c.state.Overseer
	o.BroadcastCountdown--
	if o.BroadcastCountdown <= 0 {
		o.BroadcastCountdown = OverseerBroadcastCountdown
		c.recomputeOverseerPayload()
		buf := EncodeOverseerFrame(c.state.Overseer.Payload)
		c.setAdvData(buf[:])
	}
}

// recomputeOverseerPayload rebuilds the commanded (affinity, level)
// table from the current established-peer population (spec.md §4.7).
// Level 0 defaults to ON for both affinities. A deciding level at the
// reserved hostile level suppresses the opposing affinity's level-0
// devices entirely rather than applying the ordinary majority rule.
func (c *Core) recomputeOverseerPayload() {
	var magic, techno [LevelsPerAffinity]int
	c.peers.Range(func(p PeerSlot) {
		switch p.Affinity {
		case AffinityMagic:
			magic[p.Level]++
		case AffinityTechno:
			techno[p.Level]++
		case AffinityUnity:
			magic[SplitUnityLevel(p.Level, AffinityMagic)]++
			techno[SplitUnityLevel(p.Level, AffinityTechno)]++
		}
	})

	var payload OverseerFrame
	payload.Magic[0] = 1
	payload.Techno[0] = 1

	decidingLevel := -1
	for level := HostileEnvironmentLevel; level >= 0; level-- {
		if magic[level] > 0 || techno[level] > 0 {
			decidingLevel = level
			break
		}
	}
	if decidingLevel < 0 {
		c.state.Overseer.Payload = payload
		return
	}

	if decidingLevel == HostileEnvironmentLevel {
		if magic[decidingLevel] > 0 {
			payload.Techno[0] = 0
		}
		if techno[decidingLevel] > 0 {
			payload.Magic[0] = 0
		}
		c.state.Overseer.Payload = payload
		return
	}

	var magicState, technoState uint8
	switch {
	case magic[decidingLevel] > techno[decidingLevel]:
		magicState, technoState = 1, 0
	case techno[decidingLevel] > magic[decidingLevel]:
		magicState, technoState = 0, 1
	default:
		magicState, technoState = 1, 1
	}
	for level := decidingLevel; level >= 0; level-- {
		payload.Magic[level] = magicState
		payload.Techno[level] = technoState
	}
	c.state.Overseer.Payload = payload
}
