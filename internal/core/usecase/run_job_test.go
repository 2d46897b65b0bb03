package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

type runJobStoreFake struct {
	job    *domain.IngestionJob
	events []domain.JobEvent

	setStatusErr   error
	appendEventErr error
}

func (f *runJobStoreFake) CreateJob(_ context.Context, job *domain.IngestionJob) error {
	copyJob := *job
	f.job = &copyJob
	return nil
}

func (f *runJobStoreFake) GetJob(_ context.Context, jobID string) (*domain.IngestionJob, error) {
	if f.job == nil || f.job.ID != jobID {
		return nil, domain.WrapError(domain.ErrNotFound, "get job", errors.New("no such job"))
	}
	copyJob := *f.job
	return &copyJob, nil
}

func (f *runJobStoreFake) SetStatus(_ context.Context, jobID string, update ports.JobUpdate) error {
	if f.setStatusErr != nil {
		return f.setStatusErr
	}
	if f.job == nil || f.job.ID != jobID {
		return domain.WrapError(domain.ErrNotFound, "set status", errors.New("no such job"))
	}
	f.job.Status = update.Status
	if update.Error != nil {
		f.job.Error = *update.Error
	}
	if update.Progress != nil {
		f.job.Progress = *update.Progress
	}
	if update.Total != nil {
		f.job.Total = *update.Total
	}
	return nil
}

func (f *runJobStoreFake) AppendEvent(_ context.Context, jobID string, level domain.EventLevel, message string, data any) error {
	if f.appendEventErr != nil {
		return f.appendEventErr
	}
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}
	f.events = append(f.events, domain.JobEvent{
		ID:      int64(len(f.events) + 1),
		JobID:   jobID,
		Level:   level,
		Message: message,
		Data:    raw,
	})
	return nil
}

func (f *runJobStoreFake) ListEvents(_ context.Context, jobID string, afterID int64) ([]domain.JobEvent, error) {
	var out []domain.JobEvent
	for _, event := range f.events {
		if event.JobID == jobID && event.ID > afterID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *runJobStoreFake) eventMessages() []string {
	out := make([]string, 0, len(f.events))
	for _, event := range f.events {
		out = append(out, event.Message)
	}
	return out
}

type runStoreRepoFake struct {
	store       *domain.FileStore
	docs        []domain.Document
	listOffsets []int
}

func (f *runStoreRepoFake) Create(context.Context, *domain.FileStore) error {
	return errors.New("not implemented")
}

func (f *runStoreRepoFake) GetByID(_ context.Context, id string) (*domain.FileStore, error) {
	if f.store == nil || f.store.ID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get file store", errors.New("no such store"))
	}
	copyStore := *f.store
	return &copyStore, nil
}

func (f *runStoreRepoFake) AttachDocuments(context.Context, string, []string) error {
	return errors.New("not implemented")
}

func (f *runStoreRepoFake) CountDocuments(context.Context, string) (int, error) {
	return len(f.docs), nil
}

func (f *runStoreRepoFake) ListDocuments(_ context.Context, _ string, offset, limit int) ([]domain.Document, error) {
	f.listOffsets = append(f.listOffsets, offset)
	if offset >= len(f.docs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.docs) {
		end = len(f.docs)
	}
	out := make([]domain.Document, end-offset)
	copy(out, f.docs[offset:end])
	return out, nil
}

type runStorageFake struct {
	downloads []string
	err       error
}

func (f *runStorageFake) Upload(context.Context, string, []byte, string) error {
	return errors.New("not implemented")
}

func (f *runStorageFake) Download(_ context.Context, path string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.downloads = append(f.downloads, path)
	return []byte("bytes of " + path), nil
}

func (f *runStorageFake) SignedURL(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

type runFetcherFake struct {
	fetched []string
	err     error
}

func (f *runFetcherFake) Fetch(_ context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.fetched = append(f.fetched, url)
	return []byte("bytes of " + url), nil
}

type runSearchFake struct {
	clock      *fakeClock
	perDocCost time.Duration

	uploads     []string
	imports     []string
	polled      []string
	uploadErrOn string
	opErrorOn   string

	calls int
}

func (f *runSearchFake) CreateStore(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *runSearchFake) UploadFile(_ context.Context, _ []byte, _ string, displayName string) (string, error) {
	f.calls++
	if f.uploadErrOn != "" && displayName == f.uploadErrOn {
		return "", domain.WrapError(domain.ErrRemoteService, "upload file", errors.New("upstream 503"))
	}
	f.uploads = append(f.uploads, displayName)
	return fmt.Sprintf("files/upload-%d", len(f.uploads)), nil
}

func (f *runSearchFake) ImportFile(_ context.Context, storeName, fileName string, _ []byte) (string, error) {
	f.calls++
	f.imports = append(f.imports, storeName+"|"+fileName)
	return "operations/op-" + fileName, nil
}

func (f *runSearchFake) PollOperation(_ context.Context, operationName string, _, _ time.Duration) (*domain.Operation, error) {
	f.calls++
	f.polled = append(f.polled, operationName)
	if f.clock != nil && f.perDocCost > 0 {
		f.clock.Advance(f.perDocCost)
	}
	op := &domain.Operation{Name: operationName, Done: true}
	if f.opErrorOn != "" && strings.Contains(operationName, f.opErrorOn) {
		op.Error = json.RawMessage(`{"code":13,"message":"internal"}`)
	}
	return op, nil
}

func (f *runSearchFake) GenerateAnswer(context.Context, string, string, []string) (*domain.Answer, error) {
	return nil, errors.New("not implemented")
}

func storedDoc(n int) domain.Document {
	return domain.Document{
		ID:          fmt.Sprintf("doc-%d", n),
		Title:       fmt.Sprintf("Document %d", n),
		SourceType:  domain.SourceStorage,
		StoragePath: fmt.Sprintf("doc-%d/file.pdf", n),
		MimeType:    "application/pdf",
	}
}

func newRunFixture(docCount, progress int) (*RunIngestionJobUseCase, *runJobStoreFake, *runStoreRepoFake, *runSearchFake, *fakeClock) {
	jobs := &runJobStoreFake{
		job: &domain.IngestionJob{
			ID:          "job-1",
			JobType:     domain.JobTypeIndexFileStore,
			Status:      domain.JobQueued,
			FileStoreID: "store-1",
			Progress:    progress,
			Total:       docCount,
		},
	}
	repo := &runStoreRepoFake{
		store: &domain.FileStore{ID: "store-1", Name: "deck", RemoteName: "fileSearchStores/remote-1"},
	}
	for i := 1; i <= docCount; i++ {
		repo.docs = append(repo.docs, storedDoc(i))
	}
	clock := newFakeClock()
	search := &runSearchFake{clock: clock}

	uc := NewRunIngestionJobUseCase(jobs, repo, &runStorageFake{}, &runFetcherFake{}, search)
	uc.now = clock.Now
	return uc, jobs, repo, search, clock
}

func TestRunCompletesSmallJobInOneSlice(t *testing.T) {
	uc, jobs, _, search, _ := newRunFixture(3, 0)

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
	if job.Progress != 3 || job.Total != 3 {
		t.Fatalf("expected progress 3/3, got %d/%d", job.Progress, job.Total)
	}
	if len(search.uploads) != 3 || len(search.imports) != 3 || len(search.polled) != 3 {
		t.Fatalf("expected 3 uploads/imports/polls, got %d/%d/%d",
			len(search.uploads), len(search.imports), len(search.polled))
	}

	messages := jobs.eventMessages()
	if messages[0] != "job_started" || messages[1] != "store_ready" {
		t.Fatalf("expected job_started, store_ready prefix, got %v", messages[:2])
	}
	if messages[len(messages)-1] != "job_succeeded" {
		t.Fatalf("expected job_succeeded last, got %s", messages[len(messages)-1])
	}
	indexed := 0
	for _, m := range messages {
		if m == "indexed_ok" {
			indexed++
		}
	}
	if indexed != 3 {
		t.Fatalf("expected 3 indexed_ok events, got %d", indexed)
	}
}

func TestRunTerminalJobIsNoOp(t *testing.T) {
	uc, jobs, _, search, _ := newRunFixture(3, 3)
	jobs.job.Status = domain.JobSucceeded

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
	if search.calls != 0 {
		t.Fatalf("expected no remote calls on terminal job, got %d", search.calls)
	}
	if len(jobs.events) != 0 {
		t.Fatalf("expected no events on terminal job, got %d", len(jobs.events))
	}
}

func TestRunStopsAtTimeBudget(t *testing.T) {
	uc, jobs, _, search, _ := newRunFixture(7, 0)
	search.perDocCost = time.Second

	job, err := uc.Run(context.Background(), "job-1", 2500*time.Millisecond, 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobRunning {
		t.Fatalf("expected running after budget, got %s", job.Status)
	}
	if job.Progress != 3 {
		t.Fatalf("expected progress 3, got %d", job.Progress)
	}
	if jobs.job.Progress != 3 {
		t.Fatalf("expected persisted progress 3, got %d", jobs.job.Progress)
	}
}

func TestRunResumesFromPersistedProgress(t *testing.T) {
	uc, _, repo, search, _ := newRunFixture(7, 2)

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
	if repo.listOffsets[0] != 2 {
		t.Fatalf("expected first batch at offset 2, got %d", repo.listOffsets[0])
	}
	if len(search.uploads) != 5 {
		t.Fatalf("expected 5 uploads for remaining docs, got %d", len(search.uploads))
	}
	if search.uploads[0] != "Document 3" {
		t.Fatalf("expected resume at Document 3, got %s", search.uploads[0])
	}
}

func TestRunFailsJobOnUploadError(t *testing.T) {
	uc, jobs, _, search, _ := newRunFixture(5, 0)
	search.uploadErrOn = "Document 3"

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Progress != 2 {
		t.Fatalf("expected progress 2 before failing doc, got %d", job.Progress)
	}
	if !strings.Contains(job.Error, "upstream 503") {
		t.Fatalf("expected cause in job error, got %q", job.Error)
	}

	messages := jobs.eventMessages()
	if messages[len(messages)-1] != "job_failed" {
		t.Fatalf("expected job_failed last, got %s", messages[len(messages)-1])
	}
	if messages[len(messages)-2] != "indexed_failed" {
		t.Fatalf("expected indexed_failed before job_failed, got %s", messages[len(messages)-2])
	}
}

func TestRunFailsJobOnOperationError(t *testing.T) {
	uc, _, _, search, _ := newRunFixture(2, 0)
	search.opErrorOn = "upload-2"

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Progress != 1 {
		t.Fatalf("expected progress 1, got %d", job.Progress)
	}
	if !strings.Contains(job.Error, "import operation failed") {
		t.Fatalf("expected operation error, got %q", job.Error)
	}
}

func TestRunFailsJobOnUnreachableExternalURL(t *testing.T) {
	uc, jobs, repo, _, _ := newRunFixture(1, 0)
	repo.docs[0] = domain.Document{
		ID:          "doc-1",
		Title:       "Linked deck",
		SourceType:  domain.SourceExternalURL,
		ExternalURL: "https://example.com/deck.pdf",
	}
	fetcher := &runFetcherFake{err: errors.New("connection refused")}
	uc.fetcher = fetcher

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if !strings.Contains(jobs.job.Error, "external download") {
		t.Fatalf("expected external download error, got %q", jobs.job.Error)
	}
}

func TestRunComputesTotalOnce(t *testing.T) {
	uc, jobs, _, _, _ := newRunFixture(4, 0)
	jobs.job.Total = 0

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Total != 4 {
		t.Fatalf("expected total 4, got %d", job.Total)
	}
	if job.Status != domain.JobSucceeded {
		t.Fatalf("expected succeeded, got %s", job.Status)
	}
}

func TestRunReturnsStoreFaultAsError(t *testing.T) {
	uc, jobs, _, _, _ := newRunFixture(3, 0)
	jobs.setStatusErr = errors.New("pg down")

	_, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err == nil {
		t.Fatalf("expected error from store fault")
	}
	if !strings.Contains(err.Error(), "pg down") {
		t.Fatalf("expected store fault cause, got %v", err)
	}
}

func TestRunMissingFileStoreFailsJob(t *testing.T) {
	uc, jobs, repo, _, _ := newRunFixture(3, 0)
	repo.store = nil

	job, err := uc.Run(context.Background(), "job-1", time.Minute, 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.Status != domain.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if !strings.Contains(jobs.job.Error, "file store not found") {
		t.Fatalf("expected missing store cause, got %q", jobs.job.Error)
	}
}
