package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID is the standardized structured logging key for job identifiers.
	FieldTaskID = "task_id"
	// FieldFileID is the standardized structured logging key for stored file identifiers.
	FieldFileID = "file_id"
	// FieldRequestID is the standardized structured logging key for HTTP request identifiers.
	FieldRequestID = "request_id"
	// FieldEventType classifies warning and error lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	taskIDKey contextKey = iota
	fileIDKey
	requestIDKey
)

// WithTaskID stores a job identifier on the context.
func WithTaskID(ctx context.Context, id string) context.Context {
	return withValue(ctx, taskIDKey, id)
}

// WithFileID stores a stored file identifier on the context.
func WithFileID(ctx context.Context, id string) context.Context {
	return withValue(ctx, fileIDKey, id)
}

// WithRequestID stores an HTTP request identifier on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// TaskIDFromContext returns the job identifier stored on ctx, if any.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, taskIDKey)
}

// RequestIDFromContext returns the request identifier stored on ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, requestIDKey)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := valueFrom(ctx, taskIDKey); ok {
		fields = append(fields, slog.String(FieldTaskID, id))
	}
	if id, ok := valueFrom(ctx, fileIDKey); ok {
		fields = append(fields, slog.String(FieldFileID, id))
	}
	if id, ok := valueFrom(ctx, requestIDKey); ok {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
