package mesh

import (
	"context"
	"testing"
)

func TestLvlupTokenAcceptAndBroadcastScenario(t *testing.T) {
	// Scenario 5 (spec.md §8): self is LVLUP_TOKEN/MAGIC/level 2; a
	// qualifying AURA/MAGIC/level-1 peer within RSSI range latches as the
	// target, and the countdown-3 cycle broadcasts a master grant at
	// self.level.
	info := DeviceInfo{Mode: ModeLvlupToken, Affinity: AffinityMagic, Level: 2}
	c, led, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeLvlupToken)

	peer := mac(0x55)
	c.onLvlupTokenPeer(peer, -30, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 1})

	if !c.state.LvlupToken.HasTarget {
		t.Fatal("expected a qualifying peer to latch as the target")
	}
	if c.state.LvlupToken.TargetMAC != peer {
		t.Errorf("TargetMAC = %v, want %v", c.state.LvlupToken.TargetMAC, peer)
	}
	wantInfo := DeviceInfo{Mode: ModeAura, Affinity: AffinityMagic, Level: 2}
	if c.state.LvlupToken.TargetInfo != wantInfo {
		t.Errorf("TargetInfo = %+v, want %+v", c.state.LvlupToken.TargetInfo, wantInfo)
	}

	c.endOfCycleLvlupToken()

	frame, ok := DecodeMasterFrame(c.advData)
	if !ok {
		t.Fatal("expected an outbound master frame at countdown 3")
	}
	if frame.TargetMAC != peer || frame.Info != wantInfo {
		t.Errorf("outbound master frame = %+v, want target=%v info=%+v", frame, peer, wantInfo)
	}
	if led.states[LEDGreen] != LEDBlinkFast {
		t.Errorf("green LED = %v, want BlinkFast while broadcasting the grant", led.states[LEDGreen])
	}
}

func TestLvlupTokenRejectsBelowRSSIThresholdAndWrongLevel(t *testing.T) {
	info := DeviceInfo{Mode: ModeLvlupToken, Affinity: AffinityMagic, Level: 2}
	c, _, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeLvlupToken)

	tooWeak := mac(0x60)
	c.onLvlupTokenPeer(tooWeak, c.cfg.LvlupTokenRSSIThreshold-1, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 1})
	if c.state.LvlupToken.HasTarget {
		t.Error("a peer below the RSSI threshold must not latch")
	}

	wrongLevel := mac(0x61)
	c.onLvlupTokenPeer(wrongLevel, -10, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 0})
	if c.state.LvlupToken.HasTarget {
		t.Error("a peer not exactly one level below self must not latch")
	}
}

func TestLvlupTokenOnceLatchedIgnoresFurtherPeers(t *testing.T) {
	info := DeviceInfo{Mode: ModeLvlupToken, Affinity: AffinityMagic, Level: 2}
	c, _, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeLvlupToken)

	first := mac(0x70)
	c.onLvlupTokenPeer(first, -10, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 1})
	if !c.state.LvlupToken.HasTarget {
		t.Fatal("expected first peer to latch")
	}

	second := mac(0x71)
	c.onLvlupTokenPeer(second, -10, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 1})
	if c.state.LvlupToken.TargetMAC != first {
		t.Errorf("TargetMAC = %v, want unchanged %v once latched", c.state.LvlupToken.TargetMAC, first)
	}
}

func TestLvlupTokenSelfLevelOneReArmsAfterDischarge(t *testing.T) {
	// A token whose self.level == 1 never truly expires: at countdown 1
	// it resets to a fresh, unlatched, actively-advertising state.
	info := DeviceInfo{Mode: ModeLvlupToken, Affinity: AffinityMagic, Level: 1}
	c, led, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeLvlupToken)

	peer := mac(0x80)
	c.onLvlupTokenPeer(peer, -10, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 0})
	c.endOfCycleLvlupToken() // 3 -> broadcast
	c.endOfCycleLvlupToken() // 2 -> dwell
	c.endOfCycleLvlupToken() // 1 -> re-arm

	if c.state.LvlupToken.HasTarget {
		t.Error("expected the latch to clear on re-arm")
	}
	if led.states[LEDGreen] != LEDOn {
		t.Errorf("green LED = %v, want On after re-arming", led.states[LEDGreen])
	}
	frame, ok := DecodeMeshFrame(c.advData)
	if !ok || !frame.State {
		t.Error("expected an active mesh frame after re-arming")
	}
}

func TestLvlupTokenHigherLevelDischargesPermanently(t *testing.T) {
	info := DeviceInfo{Mode: ModeLvlupToken, Affinity: AffinityMagic, Level: 2}
	c, led, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeLvlupToken)

	peer := mac(0x81)
	c.onLvlupTokenPeer(peer, -10, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 1})
	c.endOfCycleLvlupToken()
	c.endOfCycleLvlupToken()
	c.endOfCycleLvlupToken()

	if led.states[LEDGreen] != LEDOff || led.states[LEDRed] != LEDBlinkOnce {
		t.Errorf("LEDs = green:%v red:%v, want green Off, red BlinkOnce after discharge", led.states[LEDGreen], led.states[LEDRed])
	}
	frame, ok := DecodeMeshFrame(c.advData)
	if !ok || frame.State {
		t.Error("expected an inactive mesh frame once discharged")
	}
}
