package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dotsocr/internal/jobs"
)

var _ jobs.Recorder = (*Store)(nil)

const jobColumns = `id, label, status, progress, output_dir, error_message, artifacts_json,
    created_at, started_at, finished_at, updated_at, revision`

// SaveJob upserts a job snapshot. Snapshots older than the stored revision are ignored.
func (s *Store) SaveJob(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return errors.New("save job: nil record")
	}
	var artifacts any
	if len(job.Artifacts) > 0 {
		data, err := json.Marshal(job.Artifacts)
		if err != nil {
			return fmt.Errorf("marshal artifacts: %w", err)
		}
		artifacts = string(data)
	}

	err := s.exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            label = excluded.label,
            status = excluded.status,
            progress = excluded.progress,
            output_dir = excluded.output_dir,
            error_message = excluded.error_message,
            artifacts_json = excluded.artifacts_json,
            started_at = excluded.started_at,
            finished_at = excluded.finished_at,
            updated_at = excluded.updated_at,
            revision = excluded.revision
         WHERE excluded.revision > jobs.revision`,
		job.ID,
		nullableString(job.Label),
		string(job.Status),
		job.Progress,
		job.OutputDir,
		nullableString(job.Error),
		artifacts,
		requiredTime(job.CreatedAt),
		formatTime(job.StartedAt),
		formatTime(job.FinishedAt),
		requiredTime(job.UpdatedAt),
		job.Revision,
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// GetJob returns a persisted job, or nil when unknown.
func (s *Store) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// LoadJobs returns all persisted jobs in submission order.
func (s *Store) LoadJobs(ctx context.Context) ([]*jobs.Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// CountJobs returns the number of persisted jobs per status.
func (s *Store) CountJobs(ctx context.Context) (map[jobs.Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[jobs.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[jobs.Status(status)] = count
	}
	return counts, rows.Err()
}

func scanJob(row scanner) (*jobs.Job, error) {
	var (
		job        jobs.Job
		label      sql.NullString
		status     string
		errMsg     sql.NullString
		artifacts  sql.NullString
		createdAt  sql.NullString
		startedAt  sql.NullString
		finishedAt sql.NullString
		updatedAt  sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&label,
		&status,
		&job.Progress,
		&job.OutputDir,
		&errMsg,
		&artifacts,
		&createdAt,
		&startedAt,
		&finishedAt,
		&updatedAt,
		&job.Revision,
	); err != nil {
		return nil, err
	}
	job.Label = label.String
	job.Status = jobs.Status(status)
	job.Error = errMsg.String
	if artifacts.Valid && artifacts.String != "" {
		if err := json.Unmarshal([]byte(artifacts.String), &job.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts for %s: %w", job.ID, err)
		}
	}
	job.CreatedAt = parseTime(createdAt)
	job.StartedAt = parseTime(startedAt)
	job.FinishedAt = parseTime(finishedAt)
	job.UpdatedAt = parseTime(updatedAt)
	return &job, nil
}
