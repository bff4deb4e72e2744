package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"dotsocr/internal/config"
	"dotsocr/internal/daemon"
	"dotsocr/internal/logging"
	"dotsocr/internal/preflight"
)

// PIDFileName is written to the log directory while the daemon runs.
const PIDFileName = "dotsocr.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, receives the bound API address once serving starts.
	Ready func(addr string)
}

// Run starts the dotsocr daemon and blocks until cmdCtx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind and that no other instance is running"),
		)
		return err
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("dotsocr daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []slog.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("index", cfg.Index.Backend),
		logging.String("parser_command", cfg.Parser.Command),
		logging.String("parser_endpoint", cfg.Parser.IP+":"+strconv.Itoa(cfg.Parser.Port)),
		logging.Int("workers", cfg.Jobs.Workers),
		logging.Int("queue_size", cfg.Jobs.QueueSize),
	}
	for _, dep := range preflight.CheckSystemDeps(ctx, cfg) {
		attrs = append(attrs, logging.Bool("parser_available", dep.Available))
		if dep.Detail != "" {
			attrs = append(attrs, logging.String("parser_detail", dep.Detail))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
