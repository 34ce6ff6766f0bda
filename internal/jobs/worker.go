package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cataloghub/pkg/logger"
	"cataloghub/pkg/models"
)

// Worker pulls jobs off the queue and executes them outside the request
// path. Each of its goroutines runs a poll loop: claim the oldest queued
// row, execute with panic recovery, record the outcome. A job either reaches
// a terminal row state or, if the process dies mid-run, stays stuck — there
// is no timeout or redelivery contract.
type Worker struct {
	db          *sql.DB
	log         *logger.Logger
	queue       *Queue
	concurrency int
	pollEvery   time.Duration
}

func NewWorker(db *sql.DB, baseLog *logger.Logger, queue *Queue, concurrency int, pollEvery time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollEvery <= 0 {
		pollEvery = time.Second
	}
	return &Worker{
		db:          db,
		log:         baseLog.With("component", "JobWorker"),
		queue:       queue,
		concurrency: concurrency,
		pollEvery:   pollEvery,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("starting job worker pool", "concurrency", w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := w.queue.ClaimNext(ctx)
			if err != nil {
				w.log.Warn("claim failed", "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.runOne(ctx, workerID, job)
		}
	}
}

func (w *Worker) runOne(ctx context.Context, workerID int, job *models.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job handler panic",
				"worker_id", workerID,
				"job_id", job.ID,
				"job_type", job.JobType,
				"panic", r,
			)
			_ = w.queue.Finish(ctx, job.ID, models.JobStatusFailed, nil)
		}
	}()

	result, err := w.Execute(ctx, job)
	if err != nil {
		w.log.Warn("job failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"job_type", job.JobType,
			"error", err,
		)
		_ = w.queue.Finish(ctx, job.ID, models.JobStatusFailed, nil)
		return
	}

	if err := w.queue.Finish(ctx, job.ID, models.JobStatusDone, result); err != nil {
		w.log.Warn("finish failed", "worker_id", workerID, "job_id", job.ID, "error", err)
		return
	}
	w.log.Info("job done", "worker_id", workerID, "job_id", job.ID, "job_type", job.JobType)
}

// Execute runs one claimed job and returns its result JSON. Exported so
// tests can drive a job synchronously without the poll loop.
func (w *Worker) Execute(ctx context.Context, job *models.Job) ([]byte, error) {
	switch job.JobType {
	case models.JobTypeItemStats:
		var p ItemStatsPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		res, err := ComputeItemStats(ctx, w.db, p.ItemID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)

	case models.JobTypeUserStats:
		var p UserStatsPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		res, err := ComputeUserStats(ctx, w.db, p.UserID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)

	case models.JobTypeHeartbeat:
		var p HeartbeatPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		// heartbeats only prove the scheduling path works; no state changes
		w.log.Info("heartbeat", "name", p.Name, "job_id", job.ID)
		return json.Marshal(map[string]string{"message": "heartbeat", "name": p.Name})

	default:
		return nil, fmt.Errorf("unknown job type %q", job.JobType)
	}
}
