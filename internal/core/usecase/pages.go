package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

const signedURLTTL = time.Hour

// PageView is the public rendering of a pitch page.
type PageView struct {
	Title           string             `json:"title"`
	TemplateKey     string             `json:"template_key"`
	Recipient       PageRecipientView  `json:"recipient"`
	SummaryMarkdown string             `json:"summary_markdown,omitempty"`
	DetailsMarkdown string             `json:"details_markdown,omitempty"`
	Documents       []PageDocumentView `json:"documents"`
}

type PageRecipientView struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`
	Persona     string `json:"persona,omitempty"`
}

type PageDocumentView struct {
	DocumentID     string `json:"document_id"`
	DisplayTitle   string `json:"display_title"`
	DisplayCaption string `json:"display_caption"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// PageUseCase serves public page views: page content plus display documents
// with short-lived signed download links.
type PageUseCase struct {
	pages   ports.PageRepository
	storage ports.ObjectStorage
}

func NewPageUseCase(pages ports.PageRepository, storage ports.ObjectStorage) *PageUseCase {
	return &PageUseCase{pages: pages, storage: storage}
}

func (uc *PageUseCase) View(ctx context.Context, slug string) (*PageView, error) {
	page, err := uc.pages.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve page: %w", err)
	}
	docs, err := uc.pages.ListDisplayDocuments(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list display documents: %w", err)
	}

	view := &PageView{
		Title:           page.Title,
		TemplateKey:     page.TemplateKey,
		SummaryMarkdown: page.SummaryMarkdown,
		DetailsMarkdown: page.DetailsMarkdown,
		Documents:       make([]PageDocumentView, 0, len(docs)),
	}
	if page.Recipient != nil {
		view.Recipient = PageRecipientView{
			Name:        page.Recipient.Name,
			CompanyName: page.Recipient.CompanyName,
			Persona:     page.Recipient.Persona,
		}
	}

	for _, doc := range docs {
		downloadURL, err := uc.downloadURL(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("sign document url: %w", err)
		}
		view.Documents = append(view.Documents, PageDocumentView{
			DocumentID:     doc.DocumentID,
			DisplayTitle:   doc.DisplayTitle,
			DisplayCaption: doc.DisplayCaption,
			DownloadURL:    downloadURL,
		})
	}
	return view, nil
}

func (uc *PageUseCase) downloadURL(ctx context.Context, doc domain.PageDocument) (string, error) {
	if doc.SourceType == domain.SourceExternalURL {
		return doc.ExternalURL, nil
	}
	if doc.StoragePath == "" {
		return "", nil
	}
	return uc.storage.SignedURL(ctx, doc.StoragePath, signedURLTTL)
}
