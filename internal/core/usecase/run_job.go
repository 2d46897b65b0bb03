package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

const (
	defaultPollMaxWait  = 120 * time.Second
	defaultPollInterval = 3 * time.Second
)

// RunIngestionJobUseCase drives one time slice of an ingestion job:
// download, upload to the search service, import into the store, poll the
// import operation, persist progress. A slice processes documents strictly
// in membership order and stops at the wall-clock deadline; the caller
// re-invokes Run until the returned job is terminal.
type RunIngestionJobUseCase struct {
	jobs    ports.JobStore
	stores  ports.FileStoreRepository
	storage ports.ObjectStorage
	fetcher ports.ExternalFetcher
	search  ports.SearchService

	pollMaxWait  time.Duration
	pollInterval time.Duration

	now func() time.Time
}

func NewRunIngestionJobUseCase(
	jobs ports.JobStore,
	stores ports.FileStoreRepository,
	storage ports.ObjectStorage,
	fetcher ports.ExternalFetcher,
	search ports.SearchService,
) *RunIngestionJobUseCase {
	return &RunIngestionJobUseCase{
		jobs:         jobs,
		stores:       stores,
		storage:      storage,
		fetcher:      fetcher,
		search:       search,
		pollMaxWait:  defaultPollMaxWait,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
}

// SetPolling overrides the import-operation polling window.
func (uc *RunIngestionJobUseCase) SetPolling(maxWait, interval time.Duration) {
	if maxWait > 0 {
		uc.pollMaxWait = maxWait
	}
	if interval > 0 {
		uc.pollInterval = interval
	}
}

// Run is idempotent across repeated invocations: a terminal job is returned
// unchanged with no remote I/O, a non-terminal job continues from its
// persisted progress cursor. Errors are returned only for faults of the
// job/event store itself; pipeline failures surface through the returned
// record's failed status.
func (uc *RunIngestionJobUseCase) Run(ctx context.Context, jobID string, timeBudget time.Duration, batchSize int) (*domain.IngestionJob, error) {
	job, err := uc.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.Status.Terminal() {
		return job, nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	if err := uc.jobs.SetStatus(ctx, jobID, ports.JobUpdate{Status: domain.JobRunning}); err != nil {
		return nil, fmt.Errorf("set status=running: %w", err)
	}
	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "job_started", nil); err != nil {
		return nil, fmt.Errorf("append job_started: %w", err)
	}

	store, err := uc.stores.GetByID(ctx, job.FileStoreID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return uc.failJob(ctx, jobID, errors.New("file store not found"))
		}
		return nil, fmt.Errorf("load file store: %w", err)
	}
	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "store_ready", map[string]any{
		"remote_store_name": store.RemoteName,
	}); err != nil {
		return nil, fmt.Errorf("append store_ready: %w", err)
	}

	progress := job.Progress
	total := job.Total
	if total == 0 {
		// Total is computed once and never revised: documents attached
		// after the job started are not picked up by this job.
		total, err = uc.stores.CountDocuments(ctx, job.FileStoreID)
		if err != nil {
			return nil, fmt.Errorf("count store documents: %w", err)
		}
		if err := uc.jobs.SetStatus(ctx, jobID, ports.JobUpdate{Status: domain.JobRunning, Total: &total}); err != nil {
			return nil, fmt.Errorf("persist total: %w", err)
		}
	}

	deadline := uc.now().Add(timeBudget)

batching:
	for uc.now().Before(deadline) && progress < total {
		limit := batchSize
		if remaining := total - progress; remaining < limit {
			limit = remaining
		}
		docs, err := uc.stores.ListDocuments(ctx, job.FileStoreID, progress, limit)
		if err != nil {
			return nil, fmt.Errorf("list store documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		for i := range docs {
			if !uc.now().Before(deadline) {
				break batching
			}
			doc := &docs[i]
			if err := uc.indexDocument(ctx, jobID, store, doc); err != nil {
				if appendErr := uc.jobs.AppendEvent(ctx, jobID, domain.EventError, "indexed_failed", map[string]any{
					"document_id": doc.ID,
					"error":       err.Error(),
				}); appendErr != nil {
					return nil, fmt.Errorf("append indexed_failed: %w", appendErr)
				}
				return uc.failJob(ctx, jobID, err)
			}

			progress++
			// Persist after every document so a crash loses at most the
			// in-flight one.
			if err := uc.jobs.SetStatus(ctx, jobID, ports.JobUpdate{Status: domain.JobRunning, Progress: &progress}); err != nil {
				return nil, fmt.Errorf("persist progress: %w", err)
			}
		}
	}

	if progress >= total {
		if err := uc.jobs.SetStatus(ctx, jobID, ports.JobUpdate{Status: domain.JobSucceeded, Progress: &progress}); err != nil {
			return nil, fmt.Errorf("set status=succeeded: %w", err)
		}
		if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "job_succeeded", map[string]any{
			"progress": progress,
		}); err != nil {
			return nil, fmt.Errorf("append job_succeeded: %w", err)
		}
	} else {
		if err := uc.jobs.SetStatus(ctx, jobID, ports.JobUpdate{Status: domain.JobRunning, Progress: &progress}); err != nil {
			return nil, fmt.Errorf("persist progress: %w", err)
		}
	}

	return uc.jobs.GetJob(ctx, jobID)
}

func (uc *RunIngestionJobUseCase) indexDocument(ctx context.Context, jobID string, store *domain.FileStore, doc *domain.Document) error {
	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "downloading_from_storage", map[string]any{
		"document_id": doc.ID,
	}); err != nil {
		return err
	}
	content, err := uc.resolveBytes(ctx, doc)
	if err != nil {
		return err
	}

	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "uploading_to_search_service", map[string]any{
		"document_id": doc.ID,
	}); err != nil {
		return err
	}
	fileName, err := uc.search.UploadFile(ctx, content, doc.MimeType, displayName(doc))
	if err != nil {
		return fmt.Errorf("upload document %s: %w", doc.ID, err)
	}

	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "importing_into_store", map[string]any{
		"document_id": doc.ID,
	}); err != nil {
		return err
	}
	operationName, err := uc.search.ImportFile(ctx, store.RemoteName, fileName, store.ChunkingConfig)
	if err != nil {
		return fmt.Errorf("import document %s: %w", doc.ID, err)
	}

	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "polling_operation", map[string]any{
		"document_id": doc.ID,
		"operation":   operationName,
	}); err != nil {
		return err
	}
	operation, err := uc.search.PollOperation(ctx, operationName, uc.pollMaxWait, uc.pollInterval)
	if err != nil {
		return fmt.Errorf("poll operation %s: %w", operationName, err)
	}
	if len(operation.Error) > 0 {
		return fmt.Errorf("import operation failed: %s", operation.Error)
	}

	return uc.jobs.AppendEvent(ctx, jobID, domain.EventInfo, "indexed_ok", map[string]any{
		"document_id": doc.ID,
		"file_name":   fileName,
	})
}

func (uc *RunIngestionJobUseCase) resolveBytes(ctx context.Context, doc *domain.Document) ([]byte, error) {
	if doc.SourceType == domain.SourceExternalURL {
		if doc.ExternalURL == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "resolve document", errors.New("document missing external_url"))
		}
		content, err := uc.fetcher.Fetch(ctx, doc.ExternalURL)
		if err != nil {
			return nil, fmt.Errorf("external download: %w", err)
		}
		return content, nil
	}

	if doc.StoragePath == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve document", errors.New("document missing storage_path"))
	}
	content, err := uc.storage.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("storage download: %w", err)
	}
	return content, nil
}

// failJob moves the job to its terminal failed state. One document failure
// aborts the whole job; there is no partial-skip policy.
func (uc *RunIngestionJobUseCase) failJob(ctx context.Context, jobID string, cause error) (*domain.IngestionJob, error) {
	message := cause.Error()
	if err := uc.jobs.SetStatus(ctx, jobID, ports.JobUpdate{Status: domain.JobFailed, Error: &message}); err != nil {
		return nil, fmt.Errorf("set status=failed: %w", err)
	}
	if err := uc.jobs.AppendEvent(ctx, jobID, domain.EventError, "job_failed", map[string]any{
		"error": message,
	}); err != nil {
		return nil, fmt.Errorf("append job_failed: %w", err)
	}
	return uc.jobs.GetJob(ctx, jobID)
}

func displayName(doc *domain.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	if doc.OriginalFilename != "" {
		return doc.OriginalFilename
	}
	return "document"
}
