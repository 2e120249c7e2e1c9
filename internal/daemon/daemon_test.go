package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPidRoundTrip(t *testing.T) {
	f := Files{Dir: filepath.Join(t.TempDir(), "state")}

	if err := f.WritePid(4242); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(f.PidPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("pid file perm = %o, want 600", perm)
	}
	pid, err := f.ReadPid()
	if err != nil {
		t.Fatal(err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}

	f.RemovePid()
	if _, err := f.ReadPid(); err == nil {
		t.Error("expected error after RemovePid")
	}
}

func TestReadPidInvalid(t *testing.T) {
	f := Files{Dir: t.TempDir()}
	os.WriteFile(f.PidPath(), []byte("not-a-pid\n"), 0600)
	if _, err := f.ReadPid(); err == nil {
		t.Fatal("expected error for invalid pid file")
	}
}

func TestIsRunningSelf(t *testing.T) {
	f := Files{Dir: t.TempDir()}
	if _, running := f.IsRunning(); running {
		t.Fatal("no pid file should mean not running")
	}
	if err := f.WritePid(os.Getpid()); err != nil {
		t.Fatal(err)
	}
	pid, running := f.IsRunning()
	if !running || pid != os.Getpid() {
		t.Errorf("IsRunning = %d, %v; want own pid running", pid, running)
	}
}

func TestStopNotRunning(t *testing.T) {
	f := Files{Dir: t.TempDir()}
	if err := f.Stop(); err != ErrNotRunning {
		t.Errorf("Stop = %v, want ErrNotRunning", err)
	}
}

func TestOpenLog(t *testing.T) {
	f := Files{Dir: filepath.Join(t.TempDir(), "logs")}
	lf, err := f.OpenLog()
	if err != nil {
		t.Fatal(err)
	}
	lf.WriteString("hello\n")
	lf.Close()
	data, _ := os.ReadFile(f.LogPath())
	if string(data) != "hello\n" {
		t.Errorf("log content = %q", data)
	}
}

func TestIsDaemon(t *testing.T) {
	t.Setenv(EnvDaemon, "1")
	if !IsDaemon() {
		t.Error("expected IsDaemon with env set")
	}
	t.Setenv(EnvDaemon, "")
	if IsDaemon() {
		t.Error("expected not daemon with env cleared")
	}
}
