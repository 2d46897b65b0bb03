package domain

import (
	"encoding/json"
	"time"
)

// FileStore is a named remote retrieval corpus. RemoteName holds the opaque
// resource name returned by the search service on creation
// (e.g. "fileSearchStores/abc123").
type FileStore struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	RemoteName     string          `json:"remote_name"`
	ChunkingConfig json.RawMessage `json:"chunking_config,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
