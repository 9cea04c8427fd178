package mesh

import (
	"context"
	"testing"
)

func TestAuraHostileDebounceDeactivatesAfterThreshold(t *testing.T) {
	// Scenario 2 (spec.md §8): 20 consecutive cycles of a hostile,
	// opposite-affinity AURA peer must deactivate the aura.
	info := DeviceInfo{Mode: ModeAura, Affinity: AffinityMagic, Level: 1}
	c, led, _ := newTestCore(t, info)
	ctx := context.Background()
	if err := c.SetMode(ctx, ModeAura); err != nil {
		t.Fatal(err)
	}

	hostile := MeshFrame{Mode: ModeAura, Affinity: AffinityTechno, Level: HostileEnvironmentLevel}
	for i := 0; i < HostileEnvironmentThreshold; i++ {
		c.onAuraPeer(hostile)
		c.endOfCycleAura()
	}

	if c.state.Aura.IsActive {
		t.Fatal("aura should deactivate after HostileEnvironmentThreshold consecutive hostile cycles")
	}
	if led.states[LEDRed] != LEDOn {
		t.Errorf("red LED = %v, want On", led.states[LEDRed])
	}
	if led.states[LEDGreen] != LEDOff {
		t.Errorf("green LED = %v, want Off", led.states[LEDGreen])
	}
	frame, ok := DecodeMeshFrame(c.advData)
	if !ok {
		t.Fatal("expected a valid outbound mesh frame")
	}
	if frame.State {
		t.Error("outbound state should be false once deactivated")
	}
}

func TestAuraHostileDebounceRecoversWhenDetectionStops(t *testing.T) {
	info := DeviceInfo{Mode: ModeAura, Affinity: AffinityMagic, Level: 1}
	c, _, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeAura)

	hostile := MeshFrame{Mode: ModeAura, Affinity: AffinityTechno, Level: HostileEnvironmentLevel}
	for i := 0; i < 5; i++ {
		c.onAuraPeer(hostile)
		c.endOfCycleAura()
	}
	if !c.state.Aura.IsActive {
		t.Fatal("aura should remain active before reaching the threshold")
	}
	if c.state.Aura.HostilityCounter != 5 {
		t.Fatalf("HostilityCounter = %d, want 5", c.state.Aura.HostilityCounter)
	}

	// Detection stops: counter must count back down, not reset instantly.
	c.endOfCycleAura()
	if c.state.Aura.HostilityCounter != 4 {
		t.Fatalf("HostilityCounter = %d, want 4 after one quiet cycle", c.state.Aura.HostilityCounter)
	}

	for i := 0; i < 4; i++ {
		c.endOfCycleAura()
	}
	if !c.state.Aura.IsActive {
		t.Error("aura should have stayed active throughout (never reached threshold)")
	}
	if c.state.Aura.HostilityCounter != 0 {
		t.Fatalf("HostilityCounter = %d, want 0", c.state.Aura.HostilityCounter)
	}
}

func TestAuraUnitySelfIgnoresNonAuraAndHostilePeers(t *testing.T) {
	info := DeviceInfo{Mode: ModeAura, Affinity: AffinityUnity, Level: 1}
	c, _, _ := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeAura)

	c.onAuraPeer(MeshFrame{Mode: ModeDevice, Affinity: AffinityTechno, Level: HostileEnvironmentLevel})
	c.onAuraPeer(MeshFrame{Mode: ModeAura, Affinity: AffinityTechno, Level: HostileEnvironmentLevel})
	c.endOfCycleAura()

	if c.state.Aura.HostilityCounter != 0 {
		t.Error("a UNITY aura must never register hostile detections")
	}
}
