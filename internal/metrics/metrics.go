// Package metrics exposes Prometheus counters for delete sync runs and a
// small HTTP server serving /metrics and /health in serve mode.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements the delete sync Metrics contract on its own registry
type Recorder struct {
	registry *prometheus.Registry

	// RunsTotal counts runs by outcome (completed, dry_run, safety_triggered, disabled, error).
	RunsTotal *prometheus.CounterVec
	// RunDuration tracks run durations by outcome.
	RunDuration *prometheus.HistogramVec
	// ItemsTotal counts per-item decisions by content type and action.
	ItemsTotal *prometheus.CounterVec
	// LastRunTimestamp is the unix time of the last finished run.
	LastRunTimestamp prometheus.Gauge

	mu          sync.RWMutex
	lastOutcome string
}

// NewRecorder creates a Recorder with a fresh registry that also carries the
// Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsarr_delete_sync_runs_total",
				Help: "Total number of delete sync runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsarr_delete_sync_run_duration_seconds",
				Help:    "Duration of delete sync runs in seconds",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"outcome"},
		),
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsarr_delete_sync_items_total",
				Help: "Total number of library items evaluated by delete sync",
			},
			[]string{"content_type", "action"},
		),
		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsarr_delete_sync_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last finished delete sync run",
			},
		),
	}
}

// ObserveRun records one finished run
func (r *Recorder) ObserveRun(outcome string, duration time.Duration) {
	r.RunsTotal.WithLabelValues(outcome).Inc()
	r.RunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	r.LastRunTimestamp.SetToCurrentTime()

	r.mu.Lock()
	r.lastOutcome = outcome
	r.mu.Unlock()
}

// ObserveItem records one per-item decision
func (r *Recorder) ObserveItem(contentType, action string) {
	r.ItemsTotal.WithLabelValues(contentType, action).Inc()
}

// LastOutcome returns the outcome of the most recent run, empty before the first
func (r *Recorder) LastOutcome() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastOutcome
}

// Handler returns an http.Handler serving /metrics and /health
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		outcome := r.LastOutcome()
		if outcome == "" {
			outcome = "none"
		}
		_, _ = w.Write([]byte(`{"status":"ok","lastRun":"` + outcome + `"}`))
	})
	return mux
}

// Server runs the metrics handler until its context is cancelled
type Server struct {
	httpServer *http.Server
	logger     arr.Logger
}

// NewServer creates a server for the recorder's handler on addr
func NewServer(addr string, recorder *Recorder, logger arr.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           recorder.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("📈 Metrics listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
