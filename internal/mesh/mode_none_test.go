package mesh

import (
	"context"
	"testing"
)

func TestNoneModeAdvertisesInertFrameAndIgnoresPeers(t *testing.T) {
	info := DeviceInfo{Mode: ModeNone}
	c, led, _ := newTestCore(t, info)
	ctx := context.Background()
	if err := c.SetMode(ctx, ModeNone); err != nil {
		t.Fatal(err)
	}

	frame, ok := DecodeMeshFrame(c.advData)
	if !ok || frame.State {
		t.Error("NONE mode must advertise an inactive mesh frame")
	}
	if led.states[LEDGreen] != LEDBlinkOnce || led.states[LEDRed] != LEDBlinkOnce {
		t.Errorf("LEDs = green:%v red:%v, want both BlinkOnce", led.states[LEDGreen], led.states[LEDRed])
	}

	c.dispatchPeerFrame(mac(0x01), -40, MeshFrame{Mode: ModeAura, Affinity: AffinityMagic, Level: 1, State: true})
	c.endOfCycleNone()
	if c.peers.Count() != 0 {
		t.Error("NONE mode must ignore every peer advertisement")
	}
}

func TestNoneModeStillAcceptsMasterCommand(t *testing.T) {
	// Master advertisements reach handleMasterFrame regardless of mode
	// (spec.md §4.9); only the peer-frame dispatch is mode-gated.
	info := DeviceInfo{Mode: ModeNone}
	c, _, store := newTestCore(t, info)
	ctx := context.Background()
	c.SetMode(ctx, ModeNone)

	next := DeviceInfo{Mode: ModeAura, Affinity: AffinityMagic, Level: 1}
	c.mu.Lock()
	c.handleMasterFrame(MasterFrame{TargetMAC: c.staticAddr.MAC, Info: next})
	c.mu.Unlock()

	if c.info != next {
		t.Errorf("device_info = %+v, want %+v", c.info, next)
	}
	if _, ok, _ := store.Read(StorageIDDeviceInfo); !ok {
		t.Error("expected device_info to be persisted")
	}
}
