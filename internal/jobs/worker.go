package jobs

import (
	"context"
	"fmt"

	"dotsocr/internal/logging"
)

func (m *Manager) worker(workerID int) {
	defer m.wg.Done()
	for t := range m.queue {
		m.execute(workerID, t)
	}
}

func (m *Manager) execute(workerID int, t task) {
	if m.ctx.Err() != nil {
		if job, ok := m.transition(t.id, StatusFailed, func(j *Job) { j.Error = reasonStopped }); ok {
			m.logger.Info("queued job dropped at shutdown", logging.TaskID(t.id))
			m.persist(context.Background(), job)
		}
		return
	}

	started, ok := m.transition(t.id, StatusRunning, func(j *Job) {
		j.Progress = progressStarted
		j.StartedAt = j.UpdatedAt
	})
	if !ok {
		return
	}
	m.persist(m.ctx, started)
	m.logger.Info("job started",
		logging.TaskID(t.id),
		logging.Int("worker_id", workerID),
		logging.String("label", started.Label),
	)

	ctx := logging.WithTaskID(m.ctx, t.id)
	ctx = withReporter(ctx, m, t.id)
	cancel := func() {}
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	defer cancel()

	result := make(chan Outcome, 1)
	go func() {
		result <- invoke(ctx, t.body, started.OutputDir)
	}()

	select {
	case outcome := <-result:
		if _, failed := outcome.(Failure); failed && ctx.Err() != nil {
			outcome = m.cancelled(ctx)
		}
		m.finish(t.id, outcome)
	case <-ctx.Done():
		m.finish(t.id, m.cancelled(ctx))
		// The worker slot stays occupied until the body returns.
		<-result
	}
}

func (m *Manager) cancelled(ctx context.Context) Outcome {
	if isTimeout(ctx) && m.ctx.Err() == nil {
		return Failure{Error: fmt.Sprintf("job timed out after %s", m.timeout)}
	}
	return Failure{Error: reasonStopped}
}

func (m *Manager) finish(id string, outcome Outcome) {
	var (
		job *Job
		ok  bool
	)
	switch o := outcome.(type) {
	case Success:
		job, ok = m.transition(id, StatusSucceeded, func(j *Job) {
			j.Artifacts = copyArtifacts(o.Artifacts)
			j.Error = ""
		})
	case Failure:
		job, ok = m.transition(id, StatusFailed, func(j *Job) {
			j.Error = failureMessage(o)
			j.Artifacts = nil
		})
	default:
		job, ok = m.transition(id, StatusFailed, func(j *Job) {
			j.Error = reasonNoOutcome
			j.Artifacts = nil
		})
	}
	if !ok {
		return
	}

	if job.Status == StatusSucceeded {
		m.logger.Info("job succeeded",
			logging.TaskID(id),
			logging.Int("artifacts", len(job.Artifacts)),
			logging.Duration("duration", job.Duration()),
		)
	} else {
		logging.WarnWithContext(m.logger, "job failed", "job_failed",
			logging.TaskID(id),
			logging.String("reason", job.Error),
			logging.Duration("duration", job.Duration()),
			logging.String(logging.FieldImpact, "task produced no result"),
			logging.String(logging.FieldErrorHint, "inspect the task error and resubmit"),
		)
	}
	m.persist(context.Background(), job)
}

// invoke runs body and converts a panic into a Failure.
func invoke(ctx context.Context, body Body, outputDir string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure{Error: fmt.Sprintf("job panicked: %v", r)}
		}
	}()
	return body.Run(ctx, outputDir)
}
