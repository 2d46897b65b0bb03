package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

const slugLength = 20

// AdminUseCase covers the operator surface: recipients, documents, file
// stores, pages and ingestion job creation. Everything here is a thin
// stateless wrapper over the stores; the only remote calls are the object
// store upload and the remote store creation.
type AdminUseCase struct {
	documents ports.DocumentRepository
	stores    ports.FileStoreRepository
	pages     ports.PageRepository
	jobs      ports.JobStore
	storage   ports.ObjectStorage
	search    ports.SearchService
}

func NewAdminUseCase(
	documents ports.DocumentRepository,
	stores ports.FileStoreRepository,
	pages ports.PageRepository,
	jobs ports.JobStore,
	storage ports.ObjectStorage,
	search ports.SearchService,
) *AdminUseCase {
	return &AdminUseCase{
		documents: documents,
		stores:    stores,
		pages:     pages,
		jobs:      jobs,
		storage:   storage,
		search:    search,
	}
}

func (uc *AdminUseCase) CreateRecipient(ctx context.Context, name, email, companyName, persona string) (*domain.Recipient, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create recipient", errors.New("name and email are required"))
	}
	recipient := &domain.Recipient{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       email,
		CompanyName: companyName,
		Persona:     persona,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.pages.CreateRecipient(ctx, recipient); err != nil {
		return nil, fmt.Errorf("create recipient: %w", err)
	}
	return recipient, nil
}

// CreateDocumentInput carries either uploaded content or an external URL.
type CreateDocumentInput struct {
	Title               string
	InternalDescription string
	MimeType            string
	ExternalURL         string
	Filename            string
	Content             []byte
}

func (uc *AdminUseCase) CreateDocument(ctx context.Context, in CreateDocumentInput) (*domain.Document, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("missing title"))
	}

	doc := &domain.Document{
		ID:                  uuid.NewString(),
		Title:               in.Title,
		InternalDescription: in.InternalDescription,
		MimeType:            in.MimeType,
		CreatedAt:           time.Now().UTC(),
	}

	switch {
	case in.ExternalURL != "":
		doc.SourceType = domain.SourceExternalURL
		doc.ExternalURL = in.ExternalURL
		if doc.MimeType == "" {
			doc.MimeType = "application/octet-stream"
		}
	case len(in.Content) > 0:
		doc.SourceType = domain.SourceStorage
		doc.OriginalFilename = in.Filename
		if doc.MimeType == "" {
			doc.MimeType = "application/octet-stream"
		}
		sum := sha256.Sum256(in.Content)
		doc.SHA256 = hex.EncodeToString(sum[:])
		doc.SizeBytes = int64(len(in.Content))
		doc.StoragePath = storagePathFor(doc.ID, in.Filename)
		if err := uc.storage.Upload(ctx, doc.StoragePath, in.Content, doc.MimeType); err != nil {
			return nil, fmt.Errorf("upload document content: %w", err)
		}
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("provide a file or external_url"))
	}

	if err := uc.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// CreateFileStore provisions the remote corpus first; only a successful
// remote creation is recorded locally.
func (uc *AdminUseCase) CreateFileStore(ctx context.Context, name, description string, chunkingConfig []byte) (*domain.FileStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create file store", errors.New("missing name"))
	}
	remoteName, err := uc.search.CreateStore(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create remote store: %w", err)
	}

	now := time.Now().UTC()
	store := &domain.FileStore{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		RemoteName:     remoteName,
		ChunkingConfig: chunkingConfig,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.stores.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("create file store: %w", err)
	}
	return store, nil
}

// AttachDocuments links documents to a store and optionally queues an
// ingestion job covering the full membership.
func (uc *AdminUseCase) AttachDocuments(ctx context.Context, storeID string, documentIDs []string, createJob bool) (jobID string, err error) {
	if len(documentIDs) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "attach documents", errors.New("missing document_ids"))
	}
	if err := uc.stores.AttachDocuments(ctx, storeID, documentIDs); err != nil {
		return "", fmt.Errorf("attach documents: %w", err)
	}
	if !createJob {
		return "", nil
	}
	job, err := uc.CreateIngestionJob(ctx, storeID)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

func (uc *AdminUseCase) CreateIngestionJob(ctx context.Context, storeID string) (*domain.IngestionJob, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create ingestion job", errors.New("missing file_store_id"))
	}
	total, err := uc.stores.CountDocuments(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("count store documents: %w", err)
	}

	now := time.Now().UTC()
	job := &domain.IngestionJob{
		ID:          uuid.NewString(),
		JobType:     domain.JobTypeIndexFileStore,
		Status:      domain.JobQueued,
		FileStoreID: storeID,
		Total:       total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create ingestion job: %w", err)
	}
	return job, nil
}

// CreatePageInput mirrors the admin page creation payload.
type CreatePageInput struct {
	Slug                 string
	Title                string
	RecipientID          string
	TemplateKey          string
	SystemPromptTemplate string
	SummaryMarkdown      string
	DetailsMarkdown      string
	FileStoreIDs         []string
	DisplayDocuments     []domain.PageDocument
}

func (uc *AdminUseCase) CreatePage(ctx context.Context, in CreatePageInput) (*domain.Page, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.RecipientID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create page", errors.New("title and recipient_id are required"))
	}
	slug := in.Slug
	if slug == "" {
		generated, err := generateSlug(slugLength)
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}
		slug = generated
	}

	now := time.Now().UTC()
	page := &domain.Page{
		ID:                   uuid.NewString(),
		Slug:                 slug,
		Title:                in.Title,
		RecipientID:          in.RecipientID,
		TemplateKey:          in.TemplateKey,
		SystemPromptTemplate: in.SystemPromptTemplate,
		SummaryMarkdown:      in.SummaryMarkdown,
		DetailsMarkdown:      in.DetailsMarkdown,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := uc.pages.CreatePage(ctx, page, in.FileStoreIDs, in.DisplayDocuments); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

func (uc *AdminUseCase) TakedownPage(ctx context.Context, pageID string) error {
	if err := uc.pages.Takedown(ctx, pageID); err != nil {
		return fmt.Errorf("takedown page: %w", err)
	}
	return nil
}

const slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateSlug(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	alphabetSize := big.NewInt(int64(len(slugAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(slugAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func storagePathFor(docID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	return docID + "/" + name
}
