package domain

import (
	"encoding/json"
	"time"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatSession struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	IPHash     string    `json:"-"`
	UserAgent  string    `json:"-"`
}

type ChatMessage struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Role      ChatRole        `json:"role"`
	Content   string          `json:"content"`
	Model     string          `json:"model,omitempty"`
	Citations json.RawMessage `json:"citations,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
