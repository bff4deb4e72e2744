package jobs

import (
	"maps"
	"time"
)

// Job is a snapshot of a job record.
type Job struct {
	ID         string
	Label      string
	Status     Status
	Progress   int
	OutputDir  string
	Error      string
	Artifacts  map[string]string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	UpdatedAt  time.Time
	// Revision increases with every change so durable records can discard
	// out-of-order writes.
	Revision int64
}

func (j *Job) clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.Artifacts != nil {
		out.Artifacts = maps.Clone(j.Artifacts)
	}
	return &out
}

// Duration returns how long the job ran, or zero when it has not finished.
func (j *Job) Duration() time.Duration {
	if j == nil || j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
