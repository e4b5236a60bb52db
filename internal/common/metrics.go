package common

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsRegistry exposes the Stats counters as Prometheus metrics.
// Values are read from the atomics at scrape time.
func NewMetricsRegistry(s *Stats) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "msis_points_evaluated_total",
			Help: "Grid points passed through the model.",
		}, func() float64 { return float64(s.GetPoints()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "msis_model_calls_total",
			Help: "Calls into the model routine.",
		}, func() float64 { return float64(s.GetCalls()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "msis_index_bytes_read_total",
			Help: "Bytes read from space weather index sources.",
		}, func() float64 { return float64(s.GetBytes()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "msis_last_run_seconds",
			Help: "Wall time of the last model run.",
		}, func() float64 { return s.GetRunLatency().Seconds() }),
	)
	return reg
}

// ServeMetrics serves /metrics on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		Infof("metrics listening on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Errorf("metrics server: %v", err)
		}
	}()
}
