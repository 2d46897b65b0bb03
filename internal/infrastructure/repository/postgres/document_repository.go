package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (id, source_type, mime_type, original_filename, title, internal_description, storage_path, external_url, sha256, size_bytes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, string(doc.SourceType), doc.MimeType, nullableString(doc.OriginalFilename),
		doc.Title, nullableString(doc.InternalDescription), nullableString(doc.StoragePath),
		nullableString(doc.ExternalURL), nullableString(doc.SHA256), doc.SizeBytes, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, source_type, mime_type, original_filename, title, internal_description, storage_path, external_url, sha256, size_bytes, created_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var sourceType string
	var originalFilename, internalDescription, storagePath, externalURL, sha sql.NullString

	err := row.Scan(
		&doc.ID, &sourceType, &doc.MimeType, &originalFilename, &doc.Title,
		&internalDescription, &storagePath, &externalURL, &sha, &doc.SizeBytes, &doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.SourceType = domain.SourceType(sourceType)
	doc.OriginalFilename = originalFilename.String
	doc.InternalDescription = internalDescription.String
	doc.StoragePath = storagePath.String
	doc.ExternalURL = externalURL.String
	doc.SHA256 = sha.String
	return &doc, nil
}
