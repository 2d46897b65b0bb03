package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func (r *PageRepository) CreateRecipient(ctx context.Context, recipient *domain.Recipient) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO recipients (id, name, email, company_name, persona, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		recipient.ID, recipient.Name, recipient.Email,
		nullableString(recipient.CompanyName), nullableString(recipient.Persona), recipient.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

func (r *PageRepository) CreatePage(ctx context.Context, page *domain.Page, fileStoreIDs []string, displayDocs []domain.PageDocument) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin page tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO pages (id, slug, title, recipient_id, template_key, system_prompt_template, summary_markdown, details_markdown, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		page.ID, page.Slug, page.Title, page.RecipientID, page.TemplateKey,
		page.SystemPromptTemplate, nullableString(page.SummaryMarkdown),
		nullableString(page.DetailsMarkdown), page.IsActive, page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}

	for _, storeID := range fileStoreIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO page_file_stores (page_id, file_store_id)
VALUES ($1,$2)
ON CONFLICT DO NOTHING
`, page.ID, storeID); err != nil {
			return fmt.Errorf("link file store %s: %w", storeID, err)
		}
	}

	for _, doc := range displayDocs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO page_documents (page_id, document_id, display_title, display_caption, sort_order)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT DO NOTHING
`, page.ID, doc.DocumentID, doc.DisplayTitle, doc.DisplayCaption, doc.SortOrder); err != nil {
			return fmt.Errorf("link display document %s: %w", doc.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit page tx: %w", err)
	}
	return nil
}

const pageColumns = `
p.id, p.slug, p.title, p.recipient_id, p.template_key, p.system_prompt_template,
p.summary_markdown, p.details_markdown, p.is_active, p.created_at, p.updated_at,
r.name, r.email, r.company_name, r.persona
`

// GetBySlug resolves an active page; inactive (taken down) pages behave as
// missing.
func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+pageColumns+`
FROM pages p
JOIN recipients r ON r.id = p.recipient_id
WHERE p.slug = $1 AND p.is_active
`, slug)
	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get page", fmt.Errorf("slug %s", slug))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	return page, nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+pageColumns+`
FROM pages p
JOIN recipients r ON r.id = p.recipient_id
WHERE p.id = $1
`, id)
	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get page", fmt.Errorf("page %s", id))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	return page, nil
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var page domain.Page
	var recipient domain.Recipient
	var summary, details, companyName, persona sql.NullString

	err := row.Scan(
		&page.ID, &page.Slug, &page.Title, &page.RecipientID, &page.TemplateKey,
		&page.SystemPromptTemplate, &summary, &details, &page.IsActive,
		&page.CreatedAt, &page.UpdatedAt,
		&recipient.Name, &recipient.Email, &companyName, &persona,
	)
	if err != nil {
		return nil, err
	}

	page.SummaryMarkdown = summary.String
	page.DetailsMarkdown = details.String
	recipient.ID = page.RecipientID
	recipient.CompanyName = companyName.String
	recipient.Persona = persona.String
	page.Recipient = &recipient
	return &page, nil
}

func (r *PageRepository) ListDisplayDocuments(ctx context.Context, pageID string) ([]domain.PageDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT pd.document_id, pd.display_title, pd.display_caption, pd.sort_order, d.source_type, d.storage_path, d.external_url
FROM page_documents pd
JOIN documents d ON d.id = pd.document_id
WHERE pd.page_id = $1
ORDER BY pd.sort_order ASC, pd.document_id ASC
`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query page documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.PageDocument
	for rows.Next() {
		var doc domain.PageDocument
		var sourceType string
		var storagePath, externalURL sql.NullString
		if err := rows.Scan(&doc.DocumentID, &doc.DisplayTitle, &doc.DisplayCaption, &doc.SortOrder, &sourceType, &storagePath, &externalURL); err != nil {
			return nil, fmt.Errorf("scan page document: %w", err)
		}
		doc.SourceType = domain.SourceType(sourceType)
		doc.StoragePath = storagePath.String
		doc.ExternalURL = externalURL.String
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page documents: %w", err)
	}
	return docs, nil
}

func (r *PageRepository) ListRemoteStoreNames(ctx context.Context, pageID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT fs.remote_name
FROM page_file_stores pfs
JOIN file_stores fs ON fs.id = pfs.file_store_id
WHERE pfs.page_id = $1
ORDER BY fs.name ASC
`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query page store names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan store name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store names: %w", err)
	}
	return names, nil
}

func (r *PageRepository) Takedown(ctx context.Context, pageID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages
SET is_active = false, takedown_at = now(), updated_at = now()
WHERE id = $1
`, pageID)
	if err != nil {
		return fmt.Errorf("takedown page: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("takedown page rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "takedown page", fmt.Errorf("page %s", pageID))
	}
	return nil
}
