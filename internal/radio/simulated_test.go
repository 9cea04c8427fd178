package radio_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
	"github.com/MrKot86/ble-aura-mesh/internal/radio"
)

func TestSimulatedDeliversAdvertisementsToOtherListeners(t *testing.T) {
	t.Parallel()

	bus := radio.NewBus()
	alice := radio.NewSimulated(bus, mesh.MAC{0x01}, -40)
	bob := radio.NewSimulated(bus, mesh.MAC{0x02}, -50)

	var mu sync.Mutex
	var gotMAC mesh.MAC
	var gotRSSI int8
	var gotPayload []byte
	received := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bob.StartScan(ctx, func(mac mesh.MAC, rssi int8, payload []byte) {
		mu.Lock()
		gotMAC, gotRSSI, gotPayload = mac, rssi, append([]byte(nil), payload...)
		mu.Unlock()
		select {
		case received <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	payload := []byte{0xCE, 0xFA, 0x01, 0x02, 0x03}
	if err := alice.StartAdvertise(mesh.SlowAdvParams, payload); err != nil {
		t.Fatalf("StartAdvertise: %v", err)
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for advertisement delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotMAC != (mesh.MAC{0x01}) {
		t.Errorf("gotMAC = %v, want alice's MAC", gotMAC)
	}
	if gotRSSI != -40 {
		t.Errorf("gotRSSI = %d, want -40", gotRSSI)
	}
	if string(gotPayload) != string(payload) {
		t.Errorf("gotPayload = %v, want %v", gotPayload, payload)
	}
}

func TestSimulatedDoesNotDeliverToItself(t *testing.T) {
	t.Parallel()

	bus := radio.NewBus()
	alice := radio.NewSimulated(bus, mesh.MAC{0x01}, -40)

	received := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := alice.StartScan(ctx, func(mac mesh.MAC, rssi int8, payload []byte) {
		received <- struct{}{}
	}); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if err := alice.StartAdvertise(mesh.SlowAdvParams, []byte{0x01}); err != nil {
		t.Fatalf("StartAdvertise: %v", err)
	}

	select {
	case <-received:
		t.Fatal("radio should not receive its own advertisement")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSimulatedStopScanDetaches(t *testing.T) {
	t.Parallel()

	bus := radio.NewBus()
	alice := radio.NewSimulated(bus, mesh.MAC{0x01}, -40)
	bob := radio.NewSimulated(bus, mesh.MAC{0x02}, -50)

	received := make(chan struct{}, 1)
	if err := bob.StartScan(context.Background(), func(mac mesh.MAC, rssi int8, payload []byte) {
		received <- struct{}{}
	}); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if err := bob.StopScan(); err != nil {
		t.Fatalf("StopScan: %v", err)
	}

	if err := alice.StartAdvertise(mesh.SlowAdvParams, []byte{0x01}); err != nil {
		t.Fatalf("StartAdvertise: %v", err)
	}

	select {
	case <-received:
		t.Fatal("stopped scanner should not receive further advertisements")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSimulatedStartScanTwiceFails(t *testing.T) {
	t.Parallel()

	bus := radio.NewBus()
	alice := radio.NewSimulated(bus, mesh.MAC{0x01}, -40)
	noop := func(mesh.MAC, int8, []byte) {}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := alice.StartScan(ctx, noop); err != nil {
		t.Fatalf("first StartScan: %v", err)
	}
	if err := alice.StartScan(ctx, noop); err == nil {
		t.Error("second StartScan should fail while a scan is in progress")
	}
}
