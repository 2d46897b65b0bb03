package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/pitchroom-backend/internal/adapters/http"
	"github.com/kirillkom/pitchroom-backend/internal/bootstrap"
	"github.com/kirillkom/pitchroom-backend/internal/config"
	"github.com/kirillkom/pitchroom-backend/internal/observability/logging"
	"github.com/kirillkom/pitchroom-backend/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		app.PageUC,
		app.ChatUC,
		app.AdminUC,
		app.TriggerUC,
		app.Jobs,
		app.Queue,
		metrics.NewHTTPServerMetrics("api"),
		httpadapter.RouterConfig{
			AdminAPIKey:       cfg.AdminAPIKey,
			DefaultTimeBudget: time.Duration(cfg.JobTimeBudgetSeconds) * time.Second,
			DefaultBatchSize:  cfg.JobBatchSize,
			RateLimitRPS:      cfg.APIRateLimitRPS,
			RateLimitBurst:    cfg.APIRateLimitBurst,
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
}
