package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

// JobStore persists ingestion jobs and their append-only event log. Event
// ids come from a bigserial, so they are strictly increasing per job and
// usable as a polling cursor.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) CreateJob(ctx context.Context, job *domain.IngestionJob) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ingestion_jobs (id, job_type, status, file_store_id, progress, total, error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		job.ID, string(job.JobType), string(job.Status), job.FileStoreID,
		job.Progress, job.Total, nullableString(job.Error), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion job: %w", err)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, jobID string) (*domain.IngestionJob, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, job_type, status, file_store_id, progress, total, error, created_at, updated_at
FROM ingestion_jobs
WHERE id = $1
`, jobID)

	var job domain.IngestionJob
	var jobType, status string
	var errMessage sql.NullString

	err := row.Scan(
		&job.ID, &jobType, &status, &job.FileStoreID,
		&job.Progress, &job.Total, &errMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get job", fmt.Errorf("job %s", jobID))
		}
		return nil, fmt.Errorf("scan ingestion job: %w", err)
	}

	job.JobType = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	job.Error = errMessage.String
	return &job, nil
}

// SetStatus applies a partial update: nil fields stay untouched, updated_at
// is always bumped.
func (s *JobStore) SetStatus(ctx context.Context, jobID string, update ports.JobUpdate) error {
	set := []string{"status = $1", "updated_at = now()"}
	args := []any{string(update.Status)}

	if update.Error != nil {
		args = append(args, *update.Error)
		set = append(set, fmt.Sprintf("error = $%d", len(args)))
	}
	if update.Progress != nil {
		args = append(args, *update.Progress)
		set = append(set, fmt.Sprintf("progress = $%d", len(args)))
	}
	if update.Total != nil {
		args = append(args, *update.Total)
		set = append(set, fmt.Sprintf("total = $%d", len(args)))
	}
	args = append(args, jobID)

	query := fmt.Sprintf("UPDATE ingestion_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update ingestion job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ingestion job rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "set status", fmt.Errorf("job %s", jobID))
	}
	return nil
}

func (s *JobStore) AppendEvent(ctx context.Context, jobID string, level domain.EventLevel, message string, data any) error {
	var payload []byte
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		payload = encoded
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO ingestion_job_events (job_id, level, message, data)
VALUES ($1,$2,$3,$4)
`, jobID, string(level), message, payload)
	if err != nil {
		return fmt.Errorf("insert job event: %w", err)
	}
	return nil
}

func (s *JobStore) ListEvents(ctx context.Context, jobID string, afterID int64) ([]domain.JobEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, job_id, ts, level, message, data
FROM ingestion_job_events
WHERE job_id = $1 AND id > $2
ORDER BY id ASC
`, jobID, afterID)
	if err != nil {
		return nil, fmt.Errorf("query job events: %w", err)
	}
	defer rows.Close()

	events := []domain.JobEvent{}
	for rows.Next() {
		var event domain.JobEvent
		var level string
		var data []byte
		if err := rows.Scan(&event.ID, &event.JobID, &event.TS, &level, &event.Message, &data); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		event.Level = domain.EventLevel(level)
		event.Data = data
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job events: %w", err)
	}
	return events, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
