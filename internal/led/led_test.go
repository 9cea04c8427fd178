package led_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrKot86/ble-aura-mesh/internal/led"
	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
)

func TestSimulatedTracksLastCommandedState(t *testing.T) {
	t.Parallel()

	s := led.NewSimulated()
	if got := s.State(mesh.LEDGreen); got != mesh.LEDOff {
		t.Fatalf("fresh Simulated State(LEDGreen) = %v, want LEDOff", got)
	}

	s.SetState(mesh.LEDGreen, mesh.LEDOn)
	s.SetState(mesh.LEDRed, mesh.LEDBlinkFast)

	if got := s.State(mesh.LEDGreen); got != mesh.LEDOn {
		t.Errorf("State(LEDGreen) = %v, want LEDOn", got)
	}
	if got := s.State(mesh.LEDRed); got != mesh.LEDBlinkFast {
		t.Errorf("State(LEDRed) = %v, want LEDBlinkFast", got)
	}

	s.SetState(mesh.LEDGreen, mesh.LEDOff)
	if got := s.State(mesh.LEDGreen); got != mesh.LEDOff {
		t.Errorf("State(LEDGreen) after overwrite = %v, want LEDOff", got)
	}
}

func TestSimulatedOperateWaitsOutDuration(t *testing.T) {
	t.Parallel()

	s := led.NewSimulated()
	start := time.Now()
	if err := s.Operate(context.Background(), 20*time.Millisecond, 5*time.Millisecond); err != nil {
		t.Fatalf("Operate() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Operate() returned after %v, want at least 20ms", elapsed)
	}
}

func TestSimulatedOperateReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	s := led.NewSimulated()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Operate(ctx, time.Hour, time.Minute); err == nil {
		t.Error("Operate() with a canceled context should return an error")
	}
}
