package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO chat_sessions (id, page_id, created_at, last_seen_at, ip_hash, user_agent)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		session.ID, session.PageID, session.CreatedAt, session.LastSeenAt,
		nullableString(session.IPHash), nullableString(session.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

func (s *ChatStore) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, page_id, created_at, last_seen_at
FROM chat_sessions
WHERE id = $1
`, sessionID)

	var session domain.ChatSession
	err := row.Scan(&session.ID, &session.PageID, &session.CreatedAt, &session.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("session %s", sessionID))
		}
		return nil, fmt.Errorf("scan chat session: %w", err)
	}
	return &session, nil
}

func (s *ChatStore) AppendMessages(ctx context.Context, messages ...domain.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin messages tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, message := range messages {
		var citations []byte
		if len(message.Citations) > 0 {
			citations = message.Citations
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO chat_messages (id, session_id, role, content, model, citations, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
			message.ID, message.SessionID, string(message.Role), message.Content,
			nullableString(message.Model), citations, message.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit messages tx: %w", err)
	}
	return nil
}

func (s *ChatStore) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, role, content, model, citations, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var message domain.ChatMessage
		var role string
		var model sql.NullString
		var citations []byte
		if err := rows.Scan(&message.ID, &message.SessionID, &role, &message.Content, &model, &citations, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		message.Role = domain.ChatRole(role)
		message.Model = model.String
		message.Citations = citations
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}
