// Package jobs moves aggregate computation off the request path: a
// store-backed queue, a claim-loop worker pool, and a cron-driven scheduler
// that feeds recurring heartbeat jobs into the same queue.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"cataloghub/pkg/models"
)

// Queue persists jobs as rows. Enqueue is fire-and-forget for the caller:
// it returns the job handle as soon as the row is in, and nothing about
// execution flows back to the submitter.
type Queue struct {
	DB *sql.DB
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{DB: db}
}

// Enqueue inserts a queued job row and returns its id. Duplicate submissions
// are two rows and will run twice; there is no deduplication.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.NewString()
	_, err = q.DB.ExecContext(ctx, `
		INSERT INTO jobs (id, job_type, payload, status)
		VALUES (?, ?, ?, ?)
	`, id, jobType, string(b), models.JobStatusQueued)
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return id, nil
}

// ClaimNext atomically flips the oldest queued job to running and returns
// it, or nil when the queue is empty. The single UPDATE is what keeps two
// workers from claiming the same row.
func (q *Queue) ClaimNext(ctx context.Context) (*models.Job, error) {
	row := q.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = ?, started_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = ?
			ORDER BY created_at, rowid
			LIMIT 1
		)
		RETURNING id, job_type, payload, status, result, created_at, started_at, finished_at
	`, models.JobStatusRunning, models.JobStatusQueued)

	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Finish records the terminal status and result JSON for a claimed job.
func (q *Queue) Finish(ctx context.Context, id, status string, result []byte) error {
	var res any
	if result != nil {
		res = string(result)
	}
	_, err := q.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, result = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, res, id)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// Get returns the job row for a handle, or nil when unknown.
func (q *Queue) Get(ctx context.Context, id string) (*models.Job, error) {
	row := q.DB.QueryRowContext(ctx, `
		SELECT id, job_type, payload, status, result, created_at, started_at, finished_at
		FROM jobs
		WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func scanJob(row *sql.Row) (*models.Job, error) {
	var (
		job      models.Job
		result   sql.NullString
		started  sql.NullTime
		finished sql.NullTime
	)
	if err := row.Scan(
		&job.ID, &job.JobType, &job.Payload, &job.Status,
		&result, &job.CreatedAt, &started, &finished,
	); err != nil {
		return nil, err
	}
	if result.Valid {
		job.Result = &result.String
	}
	if started.Valid {
		job.StartedAt = &started.Time
	}
	if finished.Valid {
		job.FinishedAt = &finished.Time
	}
	return &job, nil
}
