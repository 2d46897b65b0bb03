package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps all tables. DDL is serialized across api/worker
// startups with an advisory lock.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS recipients (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	company_name TEXT,
	persona TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recipients_email ON recipients(email);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL DEFAULT 'storage',
	mime_type TEXT NOT NULL,
	original_filename TEXT,
	title TEXT NOT NULL,
	internal_description TEXT,
	storage_path TEXT,
	external_url TEXT,
	sha256 TEXT,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_storage_path ON documents(storage_path);

CREATE TABLE IF NOT EXISTS file_stores (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT,
	remote_name TEXT NOT NULL UNIQUE,
	chunking_config JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS file_store_documents (
	file_store_id TEXT NOT NULL REFERENCES file_stores(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (file_store_id, document_id)
);

CREATE INDEX IF NOT EXISTS idx_fsd_document_id ON file_store_documents(document_id);

CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	recipient_id TEXT NOT NULL REFERENCES recipients(id) ON DELETE RESTRICT,
	template_key TEXT NOT NULL,
	system_prompt_template TEXT NOT NULL,
	summary_markdown TEXT,
	details_markdown TEXT,
	is_active BOOLEAN NOT NULL DEFAULT true,
	takedown_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_is_active ON pages(is_active);

CREATE TABLE IF NOT EXISTS page_file_stores (
	page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	file_store_id TEXT NOT NULL REFERENCES file_stores(id) ON DELETE RESTRICT,
	PRIMARY KEY (page_id, file_store_id)
);

CREATE TABLE IF NOT EXISTS page_documents (
	page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE RESTRICT,
	display_title TEXT NOT NULL,
	display_caption TEXT NOT NULL,
	sort_order INT NOT NULL DEFAULT 0,
	PRIMARY KEY (page_id, document_id)
);

CREATE INDEX IF NOT EXISTS idx_page_documents_sort ON page_documents(page_id, sort_order);

CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL,
	ip_hash TEXT,
	user_agent TEXT
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_page_id ON chat_sessions(page_id);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	model TEXT,
	citations JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_session_created ON chat_messages(session_id, created_at);

CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id TEXT PRIMARY KEY,
	job_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'queued',
	file_store_id TEXT REFERENCES file_stores(id) ON DELETE SET NULL,
	progress INT NOT NULL DEFAULT 0,
	total INT NOT NULL DEFAULT 0,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON ingestion_jobs(status);

CREATE TABLE IF NOT EXISTS ingestion_job_events (
	id BIGSERIAL PRIMARY KEY,
	job_id TEXT NOT NULL REFERENCES ingestion_jobs(id) ON DELETE CASCADE,
	ts TIMESTAMPTZ NOT NULL DEFAULT now(),
	level TEXT NOT NULL DEFAULT 'info',
	message TEXT NOT NULL,
	data JSONB
);

CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON ingestion_job_events(job_id, id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
