package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IngestionMetrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	documentsTotal *prometheus.CounterVec
	runsInFlight   prometheus.Gauge
}

func NewIngestionMetrics(service string) *IngestionMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pitchroom",
			Subsystem: "ingestion",
			Name:      "job_runs_total",
			Help:      "Total job run slices by resulting status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pitchroom",
			Subsystem: "ingestion",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of one job run slice in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pitchroom",
			Subsystem: "ingestion",
			Name:      "documents_indexed_total",
			Help:      "Total documents fully indexed across all jobs.",
		},
		[]string{"service"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pitchroom",
			Subsystem: "ingestion",
			Name:      "job_runs_in_flight",
			Help:      "Number of in-flight job run slices.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(runsTotal, runDuration, documentsTotal, runsInFlight)

	return &IngestionMetrics{
		registry:       registry,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		documentsTotal: documentsTotal,
		runsInFlight:   runsInFlight,
	}
}

func (m *IngestionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestionMetrics) StartRun() {
	m.runsInFlight.Inc()
}

// FinishRun records one time slice: the status the job ended the slice in
// and how many documents the slice advanced the cursor by.
func (m *IngestionMetrics) FinishRun(service, status string, documentsIndexed int, duration time.Duration) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if documentsIndexed > 0 {
		m.documentsTotal.WithLabelValues(service).Add(float64(documentsIndexed))
	}
}
