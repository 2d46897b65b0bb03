package ports

import (
	"context"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

// JobUpdate is a partial mutation of an ingestion job row. Nil fields are
// left untouched; updated_at is always bumped.
type JobUpdate struct {
	Status   domain.JobStatus
	Error    *string
	Progress *int
	Total    *int
}

// JobStore persists ingestion jobs and their append-only event log.
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.IngestionJob) error
	GetJob(ctx context.Context, jobID string) (*domain.IngestionJob, error)
	SetStatus(ctx context.Context, jobID string, update JobUpdate) error
	AppendEvent(ctx context.Context, jobID string, level domain.EventLevel, message string, data any) error
	ListEvents(ctx context.Context, jobID string, afterID int64) ([]domain.JobEvent, error)
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// FileStoreRepository persists file stores and their document membership.
// ListDocuments must return members in (added_at, document_id) order so that
// a resumed job always sees the same sequence.
type FileStoreRepository interface {
	Create(ctx context.Context, store *domain.FileStore) error
	GetByID(ctx context.Context, id string) (*domain.FileStore, error)
	AttachDocuments(ctx context.Context, storeID string, documentIDs []string) error
	CountDocuments(ctx context.Context, storeID string) (int, error)
	ListDocuments(ctx context.Context, storeID string, offset, limit int) ([]domain.Document, error)
}

// PageRepository persists recipients, pages and their display metadata.
type PageRepository interface {
	CreateRecipient(ctx context.Context, recipient *domain.Recipient) error
	CreatePage(ctx context.Context, page *domain.Page, fileStoreIDs []string, displayDocs []domain.PageDocument) error
	GetBySlug(ctx context.Context, slug string) (*domain.Page, error)
	GetByID(ctx context.Context, id string) (*domain.Page, error)
	ListDisplayDocuments(ctx context.Context, pageID string) ([]domain.PageDocument, error)
	ListRemoteStoreNames(ctx context.Context, pageID string) ([]string, error)
	Takedown(ctx context.Context, pageID string) error
}

// ChatStore persists chat sessions and messages.
type ChatStore interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	AppendMessages(ctx context.Context, messages ...domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
}

// SearchService is the remote indexing service: store management, blob
// upload, asynchronous import and grounded generation.
type SearchService interface {
	CreateStore(ctx context.Context, displayName string) (string, error)
	UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, error)
	ImportFile(ctx context.Context, storeName, fileName string, chunkingConfig []byte) (string, error)
	PollOperation(ctx context.Context, operationName string, maxWait, interval time.Duration) (*domain.Operation, error)
	GenerateAnswer(ctx context.Context, systemPrompt, userMessage string, storeNames []string) (*domain.Answer, error)
}

// AnswerGenerator is the slice of the search service the chat surface needs.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, systemPrompt, userMessage string, storeNames []string) (*domain.Answer, error)
}

// ObjectStorage stores source document bytes under opaque paths.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, mimeType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// ExternalFetcher downloads documents referenced by external URL.
type ExternalFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// JobQueue hands job ids to the worker for time-sliced execution.
type JobQueue interface {
	PublishRunJob(ctx context.Context, jobID string) error
	SubscribeRunJob(ctx context.Context, handler func(context.Context, string) error) error
}
