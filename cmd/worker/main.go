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

	"github.com/kirillkom/pitchroom-backend/internal/bootstrap"
	"github.com/kirillkom/pitchroom-backend/internal/config"
	"github.com/kirillkom/pitchroom-backend/internal/observability/logging"
	"github.com/kirillkom/pitchroom-backend/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	ingestionMetrics := metrics.NewIngestionMetrics("worker")
	if cfg.WorkerMetricsPort != "" {
		go serveMetrics(cfg.WorkerMetricsPort, ingestionMetrics)
	}

	timeBudget := time.Duration(cfg.JobTimeBudgetSeconds) * time.Second
	// A slice may spend the whole budget polling one import operation, so
	// the handler timeout has to cover budget plus one full poll window.
	sliceTimeout := timeBudget + time.Duration(cfg.PollMaxWaitSeconds)*time.Second + 30*time.Second

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRunJob(ctx, func(handlerCtx context.Context, jobID string) error {
		sliceCtx, cancel := context.WithTimeout(handlerCtx, sliceTimeout)
		defer cancel()
		return runSlice(sliceCtx, app, ingestionMetrics, jobID, timeBudget, cfg.JobBatchSize)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// runSlice executes one bounded slice of a job and re-publishes the id when
// the job is still not terminal, so long jobs make progress one budget at a
// time without any worker holding them.
func runSlice(ctx context.Context, app *bootstrap.App, m *metrics.IngestionMetrics, jobID string, timeBudget time.Duration, batchSize int) error {
	before, err := app.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if before.Status.Terminal() {
		return nil
	}

	m.StartRun()
	start := time.Now()
	job, err := app.TriggerUC.Run(ctx, jobID, timeBudget, batchSize)
	if err != nil {
		m.FinishRun("worker", "error", 0, time.Since(start))
		return err
	}
	m.FinishRun("worker", string(job.Status), job.Progress-before.Progress, time.Since(start))

	slog.Info("job_slice_done",
		"job_id", jobID,
		"status", job.Status,
		"progress", job.Progress,
		"total", job.Total,
	)

	if !job.Status.Terminal() {
		return app.Queue.PublishRunJob(ctx, jobID)
	}
	return nil
}

func serveMetrics(port string, m *metrics.IngestionMetrics) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	slog.Info("worker_metrics_listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("worker_metrics_server_error", "error", err)
	}
}
