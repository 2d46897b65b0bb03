package domain

import "time"

type SourceType string

const (
	SourceStorage     SourceType = "storage"
	SourceExternalURL SourceType = "external_url"
)

// Document is an immutable content unit. The admin surface owns it; the
// ingestion engine only ever reads it.
type Document struct {
	ID                  string     `json:"id"`
	SourceType          SourceType `json:"source_type"`
	MimeType            string     `json:"mime_type"`
	OriginalFilename    string     `json:"original_filename,omitempty"`
	Title               string     `json:"title"`
	InternalDescription string     `json:"internal_description,omitempty"`
	StoragePath         string     `json:"storage_path,omitempty"`
	ExternalURL         string     `json:"external_url,omitempty"`
	SHA256              string     `json:"sha256,omitempty"`
	SizeBytes           int64      `json:"size_bytes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}
