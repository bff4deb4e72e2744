package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"dotsocr/internal/config"
	"dotsocr/internal/daemon"
	"dotsocr/internal/daemonrun"
)

// ErrDaemonNotRunning indicates no daemon holds the instance lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// ProcessState describes what the lock and pid files say about the daemon.
type ProcessState struct {
	Running  bool
	PID      int
	PIDPath  string
	LockPath string
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Paths returns the pid and lock file locations for cfg.
func Paths(cfg *config.Config) (pidPath, lockPath string) {
	return filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName), filepath.Join(cfg.Paths.LogDir, daemon.LockFileName)
}

// Launch starts a detached "dotsocr serve" process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// Inspect reports whether a daemon currently holds the instance lock for cfg.
func Inspect(cfg *config.Config) (ProcessState, error) {
	pidPath, lockPath := Paths(cfg)
	state := ProcessState{PIDPath: pidPath, LockPath: lockPath}

	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	lock := flock.New(lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		return state, fmt.Errorf("probe daemon lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return state, nil
	}
	state.Running = true
	pid, err := ReadPID(pidPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return state, err
	}
	state.PID = pid
	return state, nil
}

// ReadPID parses the daemon pid file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %q", path)
	}
	return pid, nil
}

// WaitForShutdown polls until the instance lock is released or timeout elapses.
func WaitForShutdown(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		state, err := Inspect(cfg)
		if err == nil && !state.Running {
			return nil
		}
		if time.Now().After(deadline) {
			if err == nil {
				err = errors.New("daemon still running")
			}
			return fmt.Errorf("daemon did not stop: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// WaitForReady polls probe until it succeeds or timeout elapses.
func WaitForReady(ctx context.Context, timeout time.Duration, probe func(context.Context) error) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = probe(ctx); lastErr == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// StopAndTerminate sends SIGTERM to the daemon and force-kills it if it still
// holds the lock after gracePeriod.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	state, err := Inspect(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !state.Running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if state.PID <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine daemon pid (pid file: %s)", state.PIDPath)
	}
	if state.PID == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", state.PID)
	}
	result := StopResult{PID: state.PID}
	proc, err := os.FindProcess(state.PID)
	if err != nil {
		return result, fmt.Errorf("locate daemon process %d: %w", state.PID, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return result, fmt.Errorf("signal daemon process %d: %w", state.PID, err)
	}
	if WaitForShutdown(cfg, gracePeriod) == nil {
		return result, nil
	}

	if err := proc.Kill(); err != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", state.PID, err)
	}
	result.ForcedKill = true
	if err := os.Remove(state.PIDPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file %q: %w", state.PIDPath, err)
	}
	return result, nil
}
