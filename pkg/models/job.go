package models

import "time"

const (
	JobTypeItemStats = "item_stats"
	JobTypeUserStats = "user_stats"
	JobTypeHeartbeat = "heartbeat"
)

const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Job is one row of the queue. Payload and Result hold JSON.
type Job struct {
	ID         string     `json:"id"`
	JobType    string     `json:"job_type"`
	Payload    string     `json:"payload"`
	Status     string     `json:"status"`
	Result     *string    `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
