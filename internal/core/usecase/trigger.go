package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

// TriggerIngestionUseCase serializes job execution per job id. The engine
// keeps no lock of its own, so two concurrent triggers on the same job would
// both read the same progress cursor and double-process documents;
// singleflight collapses them into one run whose result both callers see.
type TriggerIngestionUseCase struct {
	runner ports.JobRunner
	group  singleflight.Group
}

func NewTriggerIngestionUseCase(runner ports.JobRunner) *TriggerIngestionUseCase {
	return &TriggerIngestionUseCase{runner: runner}
}

func (uc *TriggerIngestionUseCase) Run(ctx context.Context, jobID string, timeBudget time.Duration, batchSize int) (*domain.IngestionJob, error) {
	result, err, _ := uc.group.Do(jobID, func() (any, error) {
		return uc.runner.Run(ctx, jobID, timeBudget, batchSize)
	})
	if err != nil {
		return nil, err
	}
	job, ok := result.(*domain.IngestionJob)
	if !ok {
		return nil, fmt.Errorf("unexpected run result type %T", result)
	}
	return job, nil
}
