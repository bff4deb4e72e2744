package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"dotsocr/internal/logging"
	"dotsocr/internal/workspace"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
)

// Recorder persists job snapshots. SaveJob receives every transition;
// implementations should ignore snapshots older than the stored revision.
type Recorder interface {
	SaveJob(ctx context.Context, job *Job) error
	LoadJobs(ctx context.Context) ([]*Job, error)
}

// Stats summarizes the manager's records and queue.
type Stats struct {
	Total         int
	ByStatus      map[Status]int
	Workers       int
	QueueDepth    int
	QueueCapacity int
	Stopped       bool
}

type task struct {
	id   string
	body Body
}

// Manager owns job records and the worker pool that runs them.
type Manager struct {
	alloc    *workspace.Allocator
	logger   *slog.Logger
	recorder Recorder
	workers  int
	timeout  time.Duration

	queue  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	jobs   map[string]*Job
	order  []string
	closed bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithWorkers sets the number of concurrent job bodies.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithQueueSize sets how many submitted jobs may wait for a worker.
func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.queue = make(chan task, n)
		}
	}
}

// WithJobTimeout bounds each body's runtime. Zero disables the deadline.
func WithJobTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithRecorder persists every transition through r.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager constructs a manager whose job directories live under resultsRoot
// and starts its workers.
func NewManager(resultsRoot string, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		alloc:   workspace.NewAllocator(resultsRoot),
		workers: defaultWorkers,
		queue:   make(chan task, defaultQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "jobs")
	m.start()
	return m
}

func (m *Manager) start() {
	m.once.Do(func() {
		for i := 0; i < m.workers; i++ {
			m.wg.Add(1)
			go m.worker(i + 1)
		}
		m.logger.Debug("job workers started",
			logging.Int("workers", m.workers),
			logging.Int("queue_capacity", cap(m.queue)),
		)
	})
}

// Root returns the directory under which job output directories are created.
func (m *Manager) Root() string {
	return m.alloc.Root
}

// Restore loads persisted records from the recorder. Jobs that were pending or
// running when the previous process exited are marked failed.
func (m *Manager) Restore(ctx context.Context) error {
	if m.recorder == nil {
		return nil
	}
	loaded, err := m.recorder.LoadJobs(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	var interrupted []*Job
	m.mu.Lock()
	for _, job := range loaded {
		if job == nil || job.ID == "" {
			continue
		}
		if _, exists := m.jobs[job.ID]; exists {
			continue
		}
		record := job.clone()
		if !record.Status.IsTerminal() {
			now := time.Now().UTC()
			record.Status = StatusFailed
			record.Progress = progressDone
			record.Error = reasonInterrupted
			record.Artifacts = nil
			record.FinishedAt = now
			record.UpdatedAt = now
			record.Revision++
			interrupted = append(interrupted, record.clone())
		}
		m.jobs[record.ID] = record
		m.order = append(m.order, record.ID)
	}
	m.mu.Unlock()

	for _, job := range interrupted {
		m.logger.Warn("job interrupted by restart",
			logging.TaskID(job.ID),
			logging.String(logging.FieldEventType, "job_interrupted"),
			logging.String(logging.FieldErrorHint, "resubmit the task"),
		)
		m.persist(ctx, job)
	}
	m.logger.Info("job records restored",
		logging.Int("count", len(loaded)),
		logging.Int("interrupted", len(interrupted)),
	)
	return nil
}

// Submit registers body as a new pending job and queues it for execution. The
// returned snapshot is pending. Submit never waits for a free worker.
func (m *Manager) Submit(ctx context.Context, label string, body Body) (*Job, error) {
	if body == nil {
		return nil, ErrNilBody
	}
	if m.isClosed() {
		return nil, ErrManagerClosed
	}

	id, dir, err := m.alloc.Allocate()
	if err != nil {
		return nil, fmt.Errorf("allocate job directory: %w", err)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        id,
		Label:     label,
		Status:    StatusPending,
		OutputDir: dir,
		CreatedAt: now,
		UpdatedAt: now,
		Revision:  1,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.rollback(id)
		return nil, ErrManagerClosed
	}
	select {
	case m.queue <- task{id: id, body: body}:
	default:
		m.mu.Unlock()
		m.rollback(id)
		m.logger.Warn("job rejected: queue full",
			logging.String("label", label),
			logging.Int("queue_capacity", cap(m.queue)),
			logging.String(logging.FieldEventType, "queue_full"),
			logging.String(logging.FieldErrorHint, "retry later or raise jobs.queue_size"),
		)
		return nil, ErrQueueFull
	}
	m.jobs[id] = job
	m.order = append(m.order, id)
	snapshot := job.clone()
	m.mu.Unlock()

	m.logger.Info("job submitted", logging.TaskID(id), logging.String("label", label))
	m.persist(ctx, snapshot)
	return snapshot, nil
}

func (m *Manager) rollback(id string) {
	if err := m.alloc.Release(id); err != nil {
		m.logger.Warn("failed to release rejected job directory",
			logging.TaskID(id),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_rollback_failed"),
		)
	}
}

// Get returns a snapshot of the job with the given id.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// List returns snapshots of all jobs in submission order.
func (m *Manager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].clone())
	}
	return out
}

// Stats returns counts by status and the current queue depth.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Stats{
		Total:         len(m.jobs),
		ByStatus:      make(map[Status]int, 4),
		Workers:       m.workers,
		QueueDepth:    len(m.queue),
		QueueCapacity: cap(m.queue),
		Stopped:       m.closed,
	}
	for _, job := range m.jobs {
		stats.ByStatus[job.Status]++
	}
	return stats
}

// Stop rejects new submissions, cancels running bodies, fails queued jobs,
// and waits for workers to exit or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("job manager shutdown interrupted", logging.Error(ctx.Err()))
		return ctx.Err()
	case <-done:
		m.logger.Info("job manager stopped")
		return nil
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// transition applies mutate to the record when the status change is legal and
// returns the resulting snapshot.
func (m *Manager) transition(id string, to Status, mutate func(*Job)) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || !canTransition(job.Status, to) {
		return nil, false
	}
	now := time.Now().UTC()
	job.Status = to
	job.UpdatedAt = now
	job.Revision++
	if mutate != nil {
		mutate(job)
	}
	if to.IsTerminal() {
		job.FinishedAt = now
		job.Progress = progressDone
	}
	return job.clone(), true
}

func (m *Manager) setProgress(id string, percent int) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusRunning {
		m.mu.Unlock()
		return
	}
	if percent > progressDone-1 {
		percent = progressDone - 1
	}
	if percent <= job.Progress {
		m.mu.Unlock()
		return
	}
	job.Progress = percent
	job.UpdatedAt = time.Now().UTC()
	job.Revision++
	snapshot := job.clone()
	m.mu.Unlock()

	m.persist(m.ctx, snapshot)
}

func (m *Manager) persist(ctx context.Context, job *Job) {
	if m.recorder == nil || job == nil {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := m.recorder.SaveJob(ctx, job); err != nil {
		logging.WarnWithContext(m.logger, "failed to persist job record", "job_persist_failed",
			logging.TaskID(job.ID),
			logging.String("status", string(job.Status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job state will not survive a restart"),
			logging.String(logging.FieldErrorHint, "check the catalog database path and disk space"),
		)
	}
}

func copyArtifacts(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	return maps.Clone(in)
}

func isTimeout(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), context.DeadlineExceeded)
}
