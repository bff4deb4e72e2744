package jobs

import (
	"context"
	"strings"
)

// Outcome is the result of a job body. The only implementations are Success
// and Failure.
type Outcome interface {
	isOutcome()
}

// Success carries the artifacts produced by a completed body, keyed by logical name.
type Success struct {
	Artifacts map[string]string
}

// Failure carries a human-readable description of why a body failed.
type Failure struct {
	Error string
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Succeed builds a Success outcome.
func Succeed(artifacts map[string]string) Outcome {
	return Success{Artifacts: artifacts}
}

// Fail builds a Failure outcome from err.
func Fail(err error) Outcome {
	if err == nil {
		return Failure{Error: "unknown error"}
	}
	return Failure{Error: err.Error()}
}

// Body is a unit of work. Run writes its artifacts into outputDir, which the
// manager created exclusively for this job.
type Body interface {
	Run(ctx context.Context, outputDir string) Outcome
}

// BodyFunc adapts a function to Body.
type BodyFunc func(ctx context.Context, outputDir string) Outcome

// Run calls f.
func (f BodyFunc) Run(ctx context.Context, outputDir string) Outcome {
	return f(ctx, outputDir)
}

func failureMessage(f Failure) string {
	if msg := strings.TrimSpace(f.Error); msg != "" {
		return msg
	}
	return "unknown error"
}
