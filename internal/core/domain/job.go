package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

type JobType string

const (
	JobTypeIndexFileStore JobType = "index_file_store"
)

// IngestionJob is one bounded, resumable execution of the indexing pipeline
// over the documents attached to a file store. Progress is the sole
// resumption cursor: a re-invocation continues from it, so invariant
// 0 <= Progress <= Total must hold at every persisted state.
type IngestionJob struct {
	ID          string    `json:"id"`
	JobType     JobType   `json:"job_type"`
	Status      JobStatus `json:"status"`
	FileStoreID string    `json:"file_store_id"`
	Progress    int       `json:"progress"`
	Total       int       `json:"total"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type EventLevel string

const (
	EventInfo  EventLevel = "info"
	EventWarn  EventLevel = "warn"
	EventError EventLevel = "error"
)

// JobEvent is an append-only log entry. ID is assigned by the store,
// strictly increasing per job, and doubles as the polling cursor.
type JobEvent struct {
	ID      int64           `json:"id"`
	JobID   string          `json:"job_id"`
	TS      time.Time       `json:"ts"`
	Level   EventLevel      `json:"level"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}
