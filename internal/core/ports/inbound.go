package ports

import (
	"context"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

// JobRunner executes one time slice of an ingestion job. It always returns
// the current job record for non-terminal outcomes; an error means the
// job/event store itself misbehaved.
type JobRunner interface {
	Run(ctx context.Context, jobID string, timeBudget time.Duration, batchSize int) (*domain.IngestionJob, error)
}
