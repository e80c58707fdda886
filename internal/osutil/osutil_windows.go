//go:build windows

package osutil

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// GracefullyStop has no clean SIGTERM equivalent on Windows, so it ends
// pid via TerminateProcess, the same call ForceKill makes.
func GracefullyStop(log *zap.Logger, pid int) error {
	log.Debug("requesting graceful close", zap.Int("pid", pid))
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("osutil: open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("osutil: terminate process %d: %w", pid, err)
	}
	return nil
}

// ForceKill terminates pid via TerminateProcess.
func ForceKill(log *zap.Logger, pid int) error {
	log.Debug("force killing server", zap.Int("pid", pid))
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("osutil: open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("osutil: terminate process %d: %w", pid, err)
	}
	return nil
}
