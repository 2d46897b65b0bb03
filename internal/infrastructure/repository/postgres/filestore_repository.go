package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type FileStoreRepository struct {
	db *sql.DB
}

func NewFileStoreRepository(db *sql.DB) *FileStoreRepository {
	return &FileStoreRepository{db: db}
}

func (r *FileStoreRepository) Create(ctx context.Context, store *domain.FileStore) error {
	var chunking []byte
	if len(store.ChunkingConfig) > 0 {
		chunking = store.ChunkingConfig
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO file_stores (id, name, description, remote_name, chunking_config, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		store.ID, store.Name, nullableString(store.Description), store.RemoteName,
		chunking, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file store: %w", err)
	}
	return nil
}

func (r *FileStoreRepository) GetByID(ctx context.Context, id string) (*domain.FileStore, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, remote_name, chunking_config, created_at, updated_at
FROM file_stores
WHERE id = $1
`, id)

	var store domain.FileStore
	var description sql.NullString
	var chunking []byte

	err := row.Scan(&store.ID, &store.Name, &description, &store.RemoteName, &chunking, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get file store", fmt.Errorf("file store %s", id))
		}
		return nil, fmt.Errorf("scan file store: %w", err)
	}

	store.Description = description.String
	store.ChunkingConfig = chunking
	return &store, nil
}

// AttachDocuments is idempotent: re-attaching an already linked document
// keeps its original added_at, so the processing order never shifts.
func (r *FileStoreRepository) AttachDocuments(ctx context.Context, storeID string, documentIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attach tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, docID := range documentIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO file_store_documents (file_store_id, document_id)
VALUES ($1,$2)
ON CONFLICT DO NOTHING
`, storeID, docID); err != nil {
			return fmt.Errorf("attach document %s: %w", docID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attach tx: %w", err)
	}
	return nil
}

func (r *FileStoreRepository) CountDocuments(ctx context.Context, storeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM file_store_documents WHERE file_store_id = $1
`, storeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count store documents: %w", err)
	}
	return count, nil
}

// ListDocuments returns members in (added_at, document_id) order. The order
// must be stable across calls: the ingestion engine uses its progress
// counter as an offset into this sequence.
func (r *FileStoreRepository) ListDocuments(ctx context.Context, storeID string, offset, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT d.id, d.source_type, d.mime_type, d.original_filename, d.title, d.internal_description, d.storage_path, d.external_url, d.sha256, d.size_bytes, d.created_at
FROM file_store_documents fsd
JOIN documents d ON d.id = fsd.document_id
WHERE fsd.file_store_id = $1
ORDER BY fsd.added_at ASC, d.id ASC
OFFSET $2 LIMIT $3
`, storeID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query store documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store documents: %w", err)
	}
	return docs, nil
}
