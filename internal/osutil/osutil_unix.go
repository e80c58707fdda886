//go:build !windows

// Package osutil isolates the OS-specific bits of stopping the wrapped
// server process: a graceful signal on Unix, TerminateProcess on
// Windows.
package osutil

import (
	"fmt"
	"syscall"

	"go.uber.org/zap"
)

// GracefullyStop sends SIGTERM to pid, asking the server to shut down
// on its own.
func GracefullyStop(log *zap.Logger, pid int) error {
	log.Debug("sending SIGTERM to server", zap.Int("pid", pid))
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("osutil: sigterm pid %d: %w", pid, err)
	}
	return nil
}

// ForceKill sends SIGKILL to pid.
func ForceKill(log *zap.Logger, pid int) error {
	log.Debug("sending SIGKILL to server", zap.Int("pid", pid))
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("osutil: sigkill pid %d: %w", pid, err)
	}
	return nil
}
