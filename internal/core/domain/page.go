package domain

import "time"

type Recipient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name,omitempty"`
	Persona     string    `json:"persona,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Page is a personalized pitch page reachable through a secret slug.
type Page struct {
	ID                   string    `json:"id"`
	Slug                 string    `json:"slug"`
	Title                string    `json:"title"`
	RecipientID          string    `json:"recipient_id"`
	TemplateKey          string    `json:"template_key"`
	SystemPromptTemplate string    `json:"system_prompt_template"`
	SummaryMarkdown      string    `json:"summary_markdown,omitempty"`
	DetailsMarkdown      string    `json:"details_markdown,omitempty"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	Recipient *Recipient `json:"recipient,omitempty"`
}

// PageDocument is the curated subset of documents shown on a page.
type PageDocument struct {
	DocumentID     string     `json:"document_id"`
	DisplayTitle   string     `json:"display_title"`
	DisplayCaption string     `json:"display_caption"`
	SortOrder      int        `json:"sort_order"`
	SourceType     SourceType `json:"source_type"`
	StoragePath    string     `json:"storage_path,omitempty"`
	ExternalURL    string     `json:"external_url,omitempty"`
}
