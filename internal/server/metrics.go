package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics for the file store server. Scraped from an independent
// loopback listener (see StartMetricsServer) so metrics stay reachable even
// if the main dispatcher is saturated.
var (
	connectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filestored_connections_total",
		Help: "Total number of client connections accepted",
	})

	connectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filestored_connections_active",
		Help: "Current number of connected clients",
	})

	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filestored_operations_total",
		Help: "Total requests processed by opcode and outcome",
	}, []string{"opcode", "status"})

	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filestored_operation_duration_seconds",
		Help:    "Time a worker spent executing one request",
		Buckets: prometheus.DefBuckets,
	}, []string{"opcode"})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filestored_task_queue_depth",
		Help: "Number of tasks currently buffered in the dispatcher's queue",
	})

	storedFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filestored_stored_files",
		Help: "Current number of files held in the store",
	})

	storedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "filestored_stored_bytes",
		Help: "Current number of bytes held in the store",
	})

	evictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filestored_evictions_total",
		Help: "Total number of files evicted to make room",
	})

	fatalErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filestored_fatal_errors_total",
		Help: "Total number of fatal errors surfaced by the store",
	})
)

func init() {
	prometheus.MustRegister(
		connectionsTotal,
		connectionsActive,
		operationsTotal,
		operationDuration,
		queueDepth,
		storedFiles,
		storedBytes,
		evictionsTotal,
		fatalErrorsTotal,
	)
}

// RecordConnectionOpened/Closed track connectionsActive alongside the
// monotonic connectionsTotal counter.
func RecordConnectionOpened() {
	connectionsTotal.Inc()
	connectionsActive.Inc()
}

func RecordConnectionClosed() {
	connectionsActive.Dec()
}

// RecordOperation records one completed request's opcode, outcome and
// latency.
func RecordOperation(opcode string, status string, d time.Duration) {
	operationsTotal.WithLabelValues(opcode, status).Inc()
	operationDuration.WithLabelValues(opcode).Observe(d.Seconds())
}

func RecordQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

func RecordStoreStats(files int, bytes int64) {
	storedFiles.Set(float64(files))
	storedBytes.Set(float64(bytes))
}

func RecordEvictions(n int) {
	if n > 0 {
		evictionsTotal.Add(float64(n))
	}
}

func RecordFatalError() {
	fatalErrorsTotal.Inc()
}

// StartMetricsServer serves /metrics on its own listener, independent of
// the file-store socket, so a scrape never contends with client traffic.
func StartMetricsServer(addr string) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux}
	go func() {
		_ = srv.Serve(ln)
	}()
	return srv, nil
}

// StopMetricsServer gracefully shuts the metrics listener down.
func StopMetricsServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
