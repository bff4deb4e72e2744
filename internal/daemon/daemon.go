package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"dotsocr/internal/api"
	"dotsocr/internal/catalog"
	"dotsocr/internal/config"
	"dotsocr/internal/filestore"
	"dotsocr/internal/jobs"
	"dotsocr/internal/logging"
	"dotsocr/internal/parser"
	"dotsocr/internal/preflight"
	"dotsocr/internal/server"
)

// LockFileName is the single-instance lock created in the log directory.
const LockFileName = "dotsocr.lock"

const (
	dependencyCacheTTL = 30 * time.Second
	stopTimeout        = 10 * time.Second
)

// Daemon owns the stores, job manager, and HTTP server of one service process
// and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *catalog.Store
	files   *filestore.Store
	jobs    *jobs.Manager
	server  *server.Server
	engine  parser.Engine

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc

	depsMu      sync.Mutex
	depsChecked time.Time
	depsCached  []api.DependencyStatus
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Address      string
	Index        string
	CatalogPath  string
	LockFilePath string
	Jobs         jobs.Stats
	Dependencies []api.DependencyStatus
}

// Option customizes daemon construction.
type Option func(*Daemon)

// WithEngine replaces the configured parser command, mainly for tests.
func WithEngine(engine parser.Engine) Option {
	return func(d *Daemon) {
		d.engine = engine
	}
}

// New creates the data directories, opens the optional catalog, restores job
// records, and wires the HTTP handlers. The server is not started.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}

	var index filestore.Index
	jobOpts := []jobs.Option{
		jobs.WithWorkers(cfg.Jobs.Workers),
		jobs.WithQueueSize(cfg.Jobs.QueueSize),
		jobs.WithJobTimeout(cfg.JobTimeout()),
		jobs.WithLogger(logger),
	}
	if cfg.UsesCatalog() {
		store, err := catalog.Open(cfg.Paths.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		d.catalog = store
		index = store
		jobOpts = append(jobOpts, jobs.WithRecorder(store))
	}

	if d.engine == nil {
		engine, err := parser.NewCommandEngine(parser.SettingsFromConfig(cfg), logger)
		if err != nil {
			d.closeCatalog()
			return nil, fmt.Errorf("create parser engine: %w", err)
		}
		d.engine = engine
	}

	d.files = filestore.New(cfg.Paths.StorageDir, index, logger)
	d.jobs = jobs.NewManager(cfg.Paths.ResultsDir, jobOpts...)
	if err := d.jobs.Restore(context.Background()); err != nil {
		logging.WarnWithContext(logger, "job restore failed", "job_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
			logging.String(logging.FieldImpact, "tasks from the previous run are not listed"),
		)
	}

	srv, err := server.New(server.Options{
		Files:          d.files,
		Jobs:           d.jobs,
		Engine:         d.engine,
		Parser:         parser.SettingsFromConfig(cfg),
		Index:          cfg.Index.Backend,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Dependencies:   d.dependencies,
		Logger:         logger,
	})
	if err != nil {
		_ = d.jobs.Stop(context.Background())
		d.closeCatalog()
		return nil, err
	}
	d.server = srv
	return d, nil
}

// Start acquires the daemon lock and starts serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped.Load() {
		return errors.New("daemon has been stopped")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dotsocr daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx, d.cfg.Paths.APIBind); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("dotsocr daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()),
		logging.String("index", d.cfg.Index.Backend),
	)
	return nil
}

// Stop stops the HTTP server, cancels running jobs, and releases the lock.
// A stopped daemon cannot be restarted.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.stopJobs()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("dotsocr daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.stopJobs()
	return d.closeCatalog()
}

func (d *Daemon) stopJobs() {
	if d.stopped.Swap(true) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := d.jobs.Stop(ctx); err != nil {
		logging.WarnWithContext(d.logger, "job manager did not stop cleanly", "job_stop_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "some parser processes may still be exiting"),
		)
	}
}

func (d *Daemon) closeCatalog() error {
	if d.catalog == nil {
		return nil
	}
	err := d.catalog.Close()
	d.catalog = nil
	return err
}

// Addr returns the address the HTTP server is bound to.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Handler exposes the HTTP handler for in-process use.
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.server.Addr(),
		Index:        d.cfg.Index.Backend,
		LockFilePath: d.lockPath,
		Jobs:         d.jobs.Stats(),
		Dependencies: d.dependencies(ctx),
	}
	if d.catalog != nil {
		status.CatalogPath = d.catalog.Path()
	}
	return status
}

// dependencies runs the preflight checks, caching the result briefly because
// the parser probe starts an interpreter.
func (d *Daemon) dependencies(ctx context.Context) []api.DependencyStatus {
	d.depsMu.Lock()
	defer d.depsMu.Unlock()
	if d.depsCached != nil && time.Since(d.depsChecked) < dependencyCacheTTL {
		return append([]api.DependencyStatus(nil), d.depsCached...)
	}

	var out []api.DependencyStatus
	for _, dep := range preflight.CheckSystemDeps(ctx, d.cfg) {
		out = append(out, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	for _, check := range preflight.RunAll(ctx, d.cfg) {
		out = append(out, api.DependencyStatus{
			Name:      check.Name,
			Optional:  check.Optional,
			Available: check.Passed,
			Detail:    check.Detail,
		})
	}
	if d.catalog != nil {
		dep := api.DependencyStatus{Name: "Catalog database", Command: d.catalog.Path(), Available: true}
		if err := d.catalog.Ping(ctx); err != nil {
			dep.Available = false
			dep.Detail = err.Error()
		}
		out = append(out, dep)
	}

	d.depsCached = out
	d.depsChecked = time.Now()
	return append([]api.DependencyStatus(nil), out...)
}
