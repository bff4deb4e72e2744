package daemonctl

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"dotsocr/internal/testsupport"
)

func TestInspectWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	state, err := Inspect(cfg)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if state.Running {
		t.Fatal("expected no daemon")
	}
	if _, err := StopAndTerminate(cfg, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestInspectDetectsHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	pidPath, lockPath := Paths(cfg)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(pidPath, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	state, err := Inspect(cfg)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !state.Running || state.PID != 4242 {
		t.Fatalf("unexpected state: %+v", state)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := WaitForShutdown(cfg, time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestStopRefusesCurrentProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	pidPath, lockPath := Paths(cfg)
	lock := flock.New(lockPath)
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := StopAndTerminate(cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal the current process")
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	path := t.TempDir() + "/pid"
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWaitForReady(t *testing.T) {
	attempts := 0
	err := WaitForReady(context.Background(), 5*time.Second, func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}

	err = WaitForReady(context.Background(), 300*time.Millisecond, func(context.Context) error {
		return errors.New("never")
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
