package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// IsRunning reports the pid from the PID file and whether that process is alive.
func (f Files) IsRunning() (int, bool) {
	pid, err := f.ReadPid()
	if err != nil {
		return 0, false
	}
	// FindProcess always succeeds on Windows; ask tasklist instead.
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH").Output()
	if err != nil {
		return 0, false
	}
	if strings.Contains(string(out), fmt.Sprintf(" %d ", pid)) {
		return pid, true
	}
	return 0, false
}

// Stop kills the server process and removes the PID file.
func (f Files) Stop() error {
	pid, running := f.IsRunning()
	if !running {
		f.RemovePid()
		return ErrNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to stop server (PID %d): %w", pid, err)
	}
	f.RemovePid()
	return nil
}

const createNewProcessGroup = 0x00000200

// SysProcAttr starts the child in a new process group.
func SysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}
