package parser

import (
	"context"
	"fmt"

	"dotsocr/internal/jobs"
)

// Artifact names recorded on successful parse jobs.
const (
	ArtifactResultJSONL = "result_jsonl"
	ArtifactDir         = "dir"
)

// TaskOptions controls a background parse job.
type TaskOptions struct {
	PromptMode     string
	FitzPreprocess bool
}

// NewTaskBody returns a job body that parses sourcePath with engine into the
// job's output directory.
func NewTaskBody(engine Engine, sourcePath string, kind Kind, opts TaskOptions) jobs.Body {
	return jobs.BodyFunc(func(ctx context.Context, outputDir string) jobs.Outcome {
		req := Request{
			InputPath:      sourcePath,
			Kind:           kind,
			PromptMode:     opts.PromptMode,
			FitzPreprocess: opts.FitzPreprocess,
			OutputDir:      outputDir,
		}
		jobs.ReportProgress(ctx, 10)
		pages, err := engine.Parse(ctx, req)
		if err != nil {
			return jobs.Fail(err)
		}
		if len(pages) == 0 {
			return jobs.Fail(ErrNoResults)
		}
		jobs.ReportProgress(ctx, 95)
		return jobs.Succeed(map[string]string{
			ArtifactResultJSONL: ManifestPath(outputDir, req.Filename()),
			ArtifactDir:         outputDir,
		})
	})
}

// TaskLabel describes a parse job for logs and listings.
func TaskLabel(fileID string, mock bool) string {
	if mock {
		return fmt.Sprintf("parse %s (mock)", fileID)
	}
	return "parse " + fileID
}
