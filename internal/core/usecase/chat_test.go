package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type pageRepoFake struct {
	page        *domain.Page
	displayDocs []domain.PageDocument
	storeNames  []string

	createdRecipient *domain.Recipient
	createdPage      *domain.Page
	takedownID       string
}

func (f *pageRepoFake) CreateRecipient(_ context.Context, recipient *domain.Recipient) error {
	copyRecipient := *recipient
	f.createdRecipient = &copyRecipient
	return nil
}

func (f *pageRepoFake) CreatePage(_ context.Context, page *domain.Page, _ []string, _ []domain.PageDocument) error {
	copyPage := *page
	f.createdPage = &copyPage
	return nil
}

func (f *pageRepoFake) GetBySlug(_ context.Context, slug string) (*domain.Page, error) {
	if f.page == nil || f.page.Slug != slug || !f.page.IsActive {
		return nil, domain.WrapError(domain.ErrNotFound, "get page", errors.New("no such page"))
	}
	copyPage := *f.page
	return &copyPage, nil
}

func (f *pageRepoFake) GetByID(_ context.Context, id string) (*domain.Page, error) {
	if f.page == nil || f.page.ID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get page", errors.New("no such page"))
	}
	copyPage := *f.page
	return &copyPage, nil
}

func (f *pageRepoFake) ListDisplayDocuments(context.Context, string) ([]domain.PageDocument, error) {
	return f.displayDocs, nil
}

func (f *pageRepoFake) ListRemoteStoreNames(context.Context, string) ([]string, error) {
	return f.storeNames, nil
}

func (f *pageRepoFake) Takedown(_ context.Context, pageID string) error {
	f.takedownID = pageID
	return nil
}

type chatStoreFake struct {
	sessions map[string]*domain.ChatSession
	messages []domain.ChatMessage
}

func newChatStoreFake() *chatStoreFake {
	return &chatStoreFake{sessions: make(map[string]*domain.ChatSession)}
}

func (f *chatStoreFake) CreateSession(_ context.Context, session *domain.ChatSession) error {
	copySession := *session
	f.sessions[session.ID] = &copySession
	return nil
}

func (f *chatStoreFake) GetSession(_ context.Context, sessionID string) (*domain.ChatSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", errors.New("no such session"))
	}
	copySession := *session
	return &copySession, nil
}

func (f *chatStoreFake) AppendMessages(_ context.Context, messages ...domain.ChatMessage) error {
	f.messages = append(f.messages, messages...)
	return nil
}

func (f *chatStoreFake) ListMessages(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	for _, message := range f.messages {
		if message.SessionID == sessionID {
			out = append(out, message)
		}
	}
	return out, nil
}

type generatorFake struct {
	systemPrompt string
	userMessage  string
	storeNames   []string
	answer       *domain.Answer
	err          error
}

func (f *generatorFake) GenerateAnswer(_ context.Context, systemPrompt, userMessage string, storeNames []string) (*domain.Answer, error) {
	f.systemPrompt = systemPrompt
	f.userMessage = userMessage
	f.storeNames = storeNames
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func activePage() *domain.Page {
	return &domain.Page{
		ID:                   "page-1",
		Slug:                 "a1b2c3",
		Title:                "Series A Pitch",
		RecipientID:          "rec-1",
		SystemPromptTemplate: "You brief {{recipient.name}} on {{page.title}}. Docs:\n{{documents_display_list}}",
		IsActive:             true,
		Recipient:            &domain.Recipient{ID: "rec-1", Name: "Dana", CompanyName: "Acme"},
	}
}

func TestChatStartSessionOnActivePage(t *testing.T) {
	pages := &pageRepoFake{page: activePage()}
	chats := newChatStoreFake()
	uc := NewChatUseCase(pages, chats, &generatorFake{}, "gemini-2.5-flash")

	session, err := uc.StartSession(context.Background(), "a1b2c3", "hash", "agent")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if session.PageID != "page-1" {
		t.Fatalf("expected page-1, got %s", session.PageID)
	}
	if _, ok := chats.sessions[session.ID]; !ok {
		t.Fatalf("expected persisted session")
	}
}

func TestChatStartSessionInactivePage(t *testing.T) {
	page := activePage()
	page.IsActive = false
	uc := NewChatUseCase(&pageRepoFake{page: page}, newChatStoreFake(), &generatorFake{}, "m")

	if _, err := uc.StartSession(context.Background(), "a1b2c3", "", ""); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for inactive page, got %v", err)
	}
}

func TestChatPostMessageRendersPromptAndPersists(t *testing.T) {
	pages := &pageRepoFake{
		page:        activePage(),
		displayDocs: []domain.PageDocument{{DisplayTitle: "Deck", DisplayCaption: "10 slides"}},
		storeNames:  []string{"fileSearchStores/remote-1"},
	}
	chats := newChatStoreFake()
	generator := &generatorFake{answer: &domain.Answer{Text: "The ask is 2M."}}
	uc := NewChatUseCase(pages, chats, generator, "gemini-2.5-flash")

	session, err := uc.StartSession(context.Background(), "a1b2c3", "", "")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	answer, err := uc.PostMessage(context.Background(), session.ID, "  What is the ask?  ")
	if err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}
	if answer.Text != "The ask is 2M." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if !strings.Contains(generator.systemPrompt, "You brief Dana on Series A Pitch") {
		t.Fatalf("expected rendered prompt, got %q", generator.systemPrompt)
	}
	if !strings.Contains(generator.systemPrompt, "- Deck: 10 slides") {
		t.Fatalf("expected document list in prompt, got %q", generator.systemPrompt)
	}
	if generator.userMessage != "What is the ask?" {
		t.Fatalf("expected trimmed message, got %q", generator.userMessage)
	}
	if len(generator.storeNames) != 1 || generator.storeNames[0] != "fileSearchStores/remote-1" {
		t.Fatalf("expected store names passed through, got %v", generator.storeNames)
	}

	if len(chats.messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(chats.messages))
	}
	if chats.messages[0].Role != domain.RoleUser || chats.messages[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles %s/%s", chats.messages[0].Role, chats.messages[1].Role)
	}
}

func TestChatPostMessageEmpty(t *testing.T) {
	uc := NewChatUseCase(&pageRepoFake{page: activePage()}, newChatStoreFake(), &generatorFake{}, "m")
	if _, err := uc.PostMessage(context.Background(), "s-1", "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestChatPostMessageGeneratorFailureKeepsHistoryClean(t *testing.T) {
	pages := &pageRepoFake{page: activePage()}
	chats := newChatStoreFake()
	generator := &generatorFake{err: errors.New("model overloaded")}
	uc := NewChatUseCase(pages, chats, generator, "m")

	session, err := uc.StartSession(context.Background(), "a1b2c3", "", "")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if _, err := uc.PostMessage(context.Background(), session.ID, "hi"); err == nil {
		t.Fatalf("expected generator error")
	}
	if len(chats.messages) != 0 {
		t.Fatalf("expected no persisted messages on failure, got %d", len(chats.messages))
	}

	messages, err := uc.Messages(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty history, got %d", len(messages))
	}
}
