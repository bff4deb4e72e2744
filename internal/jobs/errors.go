package jobs

import "errors"

var (
	// ErrQueueFull reports that the job queue is at capacity.
	ErrQueueFull = errors.New("job queue is full")
	// ErrManagerClosed reports a submission after Stop.
	ErrManagerClosed = errors.New("job manager is stopped")
	// ErrNilBody reports a submission without a body.
	ErrNilBody = errors.New("job body is nil")
)

const (
	reasonStopped     = "manager stopped"
	reasonInterrupted = "interrupted by service restart"
	reasonNoOutcome   = "job returned no outcome"
)
