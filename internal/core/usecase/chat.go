package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
)

// ChatUseCase answers visitor questions grounded in the file stores linked
// to a page. The system prompt comes from the page's template rendered with
// page, recipient and document context.
type ChatUseCase struct {
	pages     ports.PageRepository
	chats     ports.ChatStore
	generator ports.AnswerGenerator
	model     string
}

func NewChatUseCase(
	pages ports.PageRepository,
	chats ports.ChatStore,
	generator ports.AnswerGenerator,
	model string,
) *ChatUseCase {
	return &ChatUseCase{
		pages:     pages,
		chats:     chats,
		generator: generator,
		model:     model,
	}
}

func (uc *ChatUseCase) StartSession(ctx context.Context, slug, ipHash, userAgent string) (*domain.ChatSession, error) {
	page, err := uc.pages.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("resolve page: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.ChatSession{
		ID:         uuid.NewString(),
		PageID:     page.ID,
		CreatedAt:  now,
		LastSeenAt: now,
		IPHash:     ipHash,
		UserAgent:  userAgent,
	}
	if err := uc.chats.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return session, nil
}

func (uc *ChatUseCase) PostMessage(ctx context.Context, sessionID, message string) (*domain.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "post message", errors.New("empty message"))
	}

	session, err := uc.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	page, err := uc.pages.GetByID(ctx, session.PageID)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	displayDocs, err := uc.pages.ListDisplayDocuments(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list display documents: %w", err)
	}
	storeNames, err := uc.pages.ListRemoteStoreNames(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("list store names: %w", err)
	}

	systemPrompt := RenderPrompt(page.SystemPromptTemplate, promptContext(page, displayDocs))

	answer, err := uc.generator.GenerateAnswer(ctx, systemPrompt, message, storeNames)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	now := time.Now().UTC()
	err = uc.chats.AppendMessages(ctx,
		domain.ChatMessage{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      domain.RoleUser,
			Content:   message,
			Model:     uc.model,
			CreatedAt: now,
		},
		domain.ChatMessage{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      domain.RoleAssistant,
			Content:   answer.Text,
			Model:     uc.model,
			Citations: answer.Citations,
			CreatedAt: now,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("persist messages: %w", err)
	}

	return answer, nil
}

func (uc *ChatUseCase) Messages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	if _, err := uc.chats.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	messages, err := uc.chats.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func promptContext(page *domain.Page, docs []domain.PageDocument) map[string]string {
	context := map[string]string{
		"page.title":             page.Title,
		"page.summary_markdown":  page.SummaryMarkdown,
		"page.details_markdown":  page.DetailsMarkdown,
		"documents_display_list": RenderDocumentList(docs),
	}
	if page.Recipient != nil {
		context["recipient.name"] = page.Recipient.Name
		context["recipient.company_name"] = page.Recipient.CompanyName
		context["recipient.persona"] = page.Recipient.Persona
	}
	return context
}
