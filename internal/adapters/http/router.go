package httpadapter

import (
	"net/http"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/ports"
	"github.com/kirillkom/pitchroom-backend/internal/core/usecase"
	"github.com/kirillkom/pitchroom-backend/internal/observability/metrics"
)

// Router assembles the public pitch-page surface and the key-protected
// admin surface on one mux.
type Router struct {
	pages   *usecase.PageUseCase
	chat    *usecase.ChatUseCase
	admin   *usecase.AdminUseCase
	trigger *usecase.TriggerIngestionUseCase
	jobs    ports.JobStore
	queue   ports.JobQueue

	adminAPIKey    string
	defaultBudget  time.Duration
	defaultBatch   int
	rateLimitRPS   int
	rateLimitBurst int
	httpMetrics    *metrics.HTTPServerMetrics
}

type RouterConfig struct {
	AdminAPIKey       string
	DefaultTimeBudget time.Duration
	DefaultBatchSize  int
	RateLimitRPS      int
	RateLimitBurst    int
}

func NewRouter(
	pages *usecase.PageUseCase,
	chat *usecase.ChatUseCase,
	admin *usecase.AdminUseCase,
	trigger *usecase.TriggerIngestionUseCase,
	jobs ports.JobStore,
	queue ports.JobQueue,
	httpMetrics *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	return &Router{
		pages:          pages,
		chat:           chat,
		admin:          admin,
		trigger:        trigger,
		jobs:           jobs,
		queue:          queue,
		adminAPIKey:    cfg.AdminAPIKey,
		defaultBudget:  cfg.DefaultTimeBudget,
		defaultBatch:   cfg.DefaultBatchSize,
		rateLimitRPS:   cfg.RateLimitRPS,
		rateLimitBurst: cfg.RateLimitBurst,
		httpMetrics:    httpMetrics,
	}
}

// Handler builds the full middleware-wrapped handler tree.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.handleHealth)
	if rt.httpMetrics != nil {
		mux.Handle("GET /metrics", rt.httpMetrics.Handler())
	}

	public := http.NewServeMux()
	public.HandleFunc("GET /v1/pages/{slug}", rt.handleGetPage)
	public.HandleFunc("POST /v1/pages/{slug}/chat/sessions", rt.handleStartChatSession)
	public.HandleFunc("POST /v1/chat/sessions/{sessionID}/messages", rt.handlePostChatMessage)
	public.HandleFunc("GET /v1/chat/sessions/{sessionID}/messages", rt.handleListChatMessages)
	limited := rateLimitMiddleware(public, rt.rateLimitRPS, rt.rateLimitBurst)
	mux.Handle("/v1/pages/", limited)
	mux.Handle("/v1/chat/", limited)

	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST /v1/admin/recipients", rt.handleCreateRecipient)
	adminMux.HandleFunc("POST /v1/admin/documents", rt.handleCreateDocument)
	adminMux.HandleFunc("POST /v1/admin/file-stores", rt.handleCreateFileStore)
	adminMux.HandleFunc("POST /v1/admin/file-stores/{storeID}/documents", rt.handleAttachDocuments)
	adminMux.HandleFunc("POST /v1/admin/pages", rt.handleCreatePage)
	adminMux.HandleFunc("POST /v1/admin/pages/{pageID}/takedown", rt.handleTakedownPage)
	adminMux.HandleFunc("POST /v1/admin/ingestion-jobs", rt.handleCreateIngestionJob)
	adminMux.HandleFunc("GET /v1/admin/ingestion-jobs/{jobID}", rt.handleGetIngestionJob)
	adminMux.HandleFunc("GET /v1/admin/ingestion-jobs/{jobID}/events", rt.handleListJobEvents)
	adminMux.HandleFunc("POST /v1/admin/ingestion-jobs/{jobID}/run", rt.handleRunIngestionJob)
	adminMux.HandleFunc("POST /v1/admin/ingestion-jobs/{jobID}/enqueue", rt.handleEnqueueIngestionJob)
	mux.Handle("/v1/admin/", rt.adminAuthMiddleware(adminMux))

	var handler http.Handler = mux
	handler = metricsMiddleware(handler, rt.httpMetrics, "api")
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
