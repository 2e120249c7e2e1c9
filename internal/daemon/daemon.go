// Package daemon manages the pid and log files of a background serve process.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dopejs/varman/internal/config"
)

// EnvDaemon is set in the environment of a detached serve process.
const EnvDaemon = "VARMAN_SERVE_DAEMON"

// ErrNotRunning is returned when no live process matches the pid file.
var ErrNotRunning = errors.New("server is not running")

// Files locates the pid and log files in Dir.
type Files struct {
	Dir string
}

// Default returns the files under the config directory.
func Default() Files {
	return Files{Dir: config.ConfigDirPath()}
}

// PidPath returns the path to the PID file.
func (f Files) PidPath() string {
	return filepath.Join(f.Dir, config.ServePidFile)
}

// LogPath returns the path to the server log file.
func (f Files) LogPath() string {
	return filepath.Join(f.Dir, config.ServeLogFile)
}

// WritePid writes pid to the PID file atomically with 0600 permissions.
func (f Files) WritePid(pid int) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}
	tmp := f.PidPath() + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)+"\n"), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.PidPath())
}

// ReadPid reads the PID from the PID file.
func (f Files) ReadPid() (int, error) {
	data, err := os.ReadFile(f.PidPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file %s", f.PidPath())
	}
	return pid, nil
}

// RemovePid removes the PID file.
func (f Files) RemovePid() {
	os.Remove(f.PidPath())
}

// OpenLog opens the log file for appending.
func (f Files) OpenLog() (*os.File, error) {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(f.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// IsDaemon reports whether this process was started detached.
func IsDaemon() bool {
	return os.Getenv(EnvDaemon) == "1"
}
