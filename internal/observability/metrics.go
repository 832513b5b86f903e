package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

// Metrics wraps the Prometheus collectors for the media pipeline and the
// content store.
type Metrics struct {
	uploadsTotal    *prometheus.CounterVec
	variantFailures *prometheus.CounterVec
	processDuration prometheus.Histogram
	tempReaped      prometheus.Counter
	storageFiles    *prometheus.GaugeVec
	storageBytes    *prometheus.GaugeVec
}

// InitMetrics creates and registers the pipeline collectors.
func InitMetrics() (*Metrics, error) {
	m := &Metrics{
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Processed uploads by outcome.",
		}, []string{"status"}),
		variantFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_variant_failures_total",
			Help: "Failed derived-format branches by format.",
		}, []string{"format"}),
		processDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "media_process_duration_seconds",
			Help:    "Duration of one derivation run.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		tempReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "media_temp_files_reaped_total",
			Help: "Stale temp files removed by the janitor.",
		}),
		storageFiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "media_storage_files",
			Help: "File count per storage subarea.",
		}, []string{"subarea"}),
		storageBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "media_storage_bytes",
			Help: "Byte size per storage subarea.",
		}, []string{"subarea"}),
	}

	collectors := []prometheus.Collector{
		m.uploadsTotal, m.variantFailures, m.processDuration,
		m.tempReaped, m.storageFiles, m.storageBytes,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			// If already registered, that's okay (useful for testing)
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveProcess records one derivation run's outcome and duration.
func (m *Metrics) ObserveProcess(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(status).Inc()
	m.processDuration.Observe(d.Seconds())
}

// VariantFailure records one failed derived-format branch.
func (m *Metrics) VariantFailure(format string) {
	if m == nil {
		return
	}
	m.variantFailures.WithLabelValues(format).Inc()
}

// TempReaped records stale temp files removed by the janitor.
func (m *Metrics) TempReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tempReaped.Add(float64(n))
}

// SetStorageUsage refreshes the per-subarea usage gauges.
func (m *Metrics) SetStorageUsage(stats storage.Stats) {
	if m == nil {
		return
	}
	for sub, sa := range stats.Subareas {
		m.storageFiles.WithLabelValues(sub).Set(float64(sa.Files))
		m.storageBytes.WithLabelValues(sub).Set(float64(sa.Bytes))
	}
}

// StartMetricsServer starts an HTTP server for /metrics and /health.
func StartMetricsServer(port string, logger *zap.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		logger.Info("starting metrics server", zap.String("port", port))
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
