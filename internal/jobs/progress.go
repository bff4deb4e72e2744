package jobs

import "context"

type reporterKey struct{}

type reporter struct {
	manager *Manager
	id      string
}

func withReporter(ctx context.Context, m *Manager, id string) context.Context {
	return context.WithValue(ctx, reporterKey{}, reporter{manager: m, id: id})
}

// ReportProgress raises the progress of the job running under ctx. Values are
// clamped below 100 and never move backwards. Calls outside a job body are
// ignored.
func ReportProgress(ctx context.Context, percent int) {
	if ctx == nil {
		return
	}
	r, ok := ctx.Value(reporterKey{}).(reporter)
	if !ok || r.manager == nil {
		return
	}
	r.manager.setProgress(r.id, percent)
}
