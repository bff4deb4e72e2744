package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds a single probe invocation.
const DefaultProbeTimeout = 10 * time.Second

// Requirement defines an external program the service relies on. When Probe
// is set the command is executed with those arguments and must exit zero, which
// catches interpreters that exist but lack the parser package.
type Requirement struct {
	Name        string
	Command     string
	Probe       []string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Command is replaced by the resolved path when the binary is found.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, req))
	}
	return results
}

func check(ctx context.Context, req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Command = resolved
	if len(req.Probe) > 0 {
		if err := probe(ctx, resolved, req.Probe); err != nil {
			status.Detail = err.Error()
			return status
		}
	}
	status.Available = true
	return status
}

func probe(ctx context.Context, command string, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, command, args...).CombinedOutput()
	if err == nil {
		return nil
	}
	if probeCtx.Err() != nil {
		return fmt.Errorf("probe timed out after %s", DefaultProbeTimeout)
	}
	detail := strings.TrimSpace(string(out))
	if lines := strings.Split(detail, "\n"); len(lines) > 0 {
		detail = strings.TrimSpace(lines[len(lines)-1])
	}
	if detail == "" {
		return fmt.Errorf("probe failed: %v", err)
	}
	return fmt.Errorf("probe failed: %s", detail)
}
