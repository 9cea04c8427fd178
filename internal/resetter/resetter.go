// Package resetter implements the mesh.Resetter boundary: a no-op default
// and a real cold-reboot backend gated behind operator configuration.
package resetter

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// ErrResetDisabled is returned by Process.Reset when the operator has not
// opted into allowing a reboot (spec.md §12: off by default).
var ErrResetDisabled = errors.New("resetter: reset disabled by configuration")

// Noop is a mesh.Resetter that never actually resets the host; it is the
// default so that every deployment must explicitly opt into Process.
type Noop struct{}

// Reset implements mesh.Resetter.
func (Noop) Reset(ctx context.Context) error {
	return nil
}

// Process is a mesh.Resetter that calls syscall.Reboot(LINUX_REBOOT_CMD_RESTART)
// when Allow is true, and refuses otherwise.
type Process struct {
	Allow bool
}

// NewProcess returns a Process resetter gated by allow.
func NewProcess(allow bool) *Process {
	return &Process{Allow: allow}
}

// Reset implements mesh.Resetter.
func (p *Process) Reset(ctx context.Context) error {
	if !p.Allow {
		return ErrResetDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := syscall.Reboot(syscall.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	return nil
}
