//go:build !windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// stopTimeout bounds how long Stop waits for the server to exit.
var stopTimeout = 5 * time.Second

// IsRunning reports the pid from the PID file and whether that process is alive.
func (f Files) IsRunning() (int, bool) {
	pid, err := f.ReadPid()
	if err != nil {
		return 0, false
	}
	return pid, alive(pid)
}

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 only probes
	return proc.Signal(syscall.Signal(0)) == nil
}

// Stop sends SIGTERM to the server and waits for it to exit. A stale PID
// file is removed and reported as ErrNotRunning.
func (f Files) Stop() error {
	pid, running := f.IsRunning()
	if !running {
		f.RemovePid()
		return ErrNotRunning
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to stop server (PID %d): %w", pid, err)
	}
	deadline := time.Now().Add(stopTimeout)
	for alive(pid) {
		if time.Now().After(deadline) {
			return fmt.Errorf("server (PID %d) did not exit within %s", pid, stopTimeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	f.RemovePid()
	return nil
}

// SysProcAttr detaches the child process into its own session.
func SysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
