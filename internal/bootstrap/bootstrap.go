package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/config"
	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
	"github.com/kirillkom/pitchroom-backend/internal/core/usecase"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/fetch"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/queue/nats"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/resilience"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/search/gemini"
	"github.com/kirillkom/pitchroom-backend/internal/infrastructure/storage/supabase"
)

// App wires configuration into the full dependency graph shared by the API
// and worker binaries.
type App struct {
	Config config.Config

	Jobs      ports.JobStore
	Queue     *nats.Queue
	PageUC    *usecase.PageUseCase
	ChatUC    *usecase.ChatUseCase
	AdminUC   *usecase.AdminUseCase
	TriggerUC *usecase.TriggerIngestionUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	jobs := postgres.NewJobStore(db)
	documents := postgres.NewDocumentRepository(db)
	stores := postgres.NewFileStoreRepository(db)
	pages := postgres.NewPageRepository(db)
	chats := postgres.NewChatStore(db)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	storage := supabase.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket)
	fetcher := fetch.NewHTTPFetcher()

	search := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, "", "")
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	generator := gemini.NewResilientGenerator(search, executor)

	runUC := usecase.NewRunIngestionJobUseCase(jobs, stores, storage, fetcher, search)
	runUC.SetPolling(
		time.Duration(cfg.PollMaxWaitSeconds)*time.Second,
		time.Duration(cfg.PollIntervalSeconds)*time.Second,
	)

	return &App{
		Config:    cfg,
		Jobs:      jobs,
		Queue:     queue,
		PageUC:    usecase.NewPageUseCase(pages, storage),
		ChatUC:    usecase.NewChatUseCase(pages, chats, generator, cfg.GeminiModel),
		AdminUC:   usecase.NewAdminUseCase(documents, stores, pages, jobs, storage, search),
		TriggerUC: usecase.NewTriggerIngestionUseCase(runUC),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
