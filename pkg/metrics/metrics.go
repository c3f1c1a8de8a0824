// Package metrics exposes extraction and scan counters in Prometheus
// format. Each Collector owns its registry so tests and embedded users do
// not share global state.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waftester/jsonparams/pkg/duration"
)

const namespace = "jsonparams"

// Collector holds the jsonparams metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	paramsExtracted *prometheus.CounterVec
	parseErrors     *prometheus.CounterVec
	bodyBytes       prometheus.Histogram
	probes          *prometheus.CounterVec
	probeErrors     *prometheus.CounterVec
	findings        *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
}

// New creates a collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		paramsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "params_extracted_total",
				Help:      "Params extracted from JSON bodies, by kind (string, number, null)",
			},
			[]string{"kind"},
		),
		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Bodies rejected by the extractor, by syntax error kind",
			},
			[]string{"kind"},
		),
		bodyBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "body_bytes",
				Help:      "Size of bodies handed to the extractor",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Injected requests sent, by rule",
			},
			[]string{"rule"},
		),
		probeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_errors_total",
				Help:      "Injected requests that failed, by rule",
			},
			[]string{"rule"},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Findings reported, by rule and severity",
			},
			[]string{"rule", "severity"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Probe round-trip time",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"rule"},
		),
	}

	c.registry.MustRegister(
		c.paramsExtracted,
		c.parseErrors,
		c.bodyBytes,
		c.probes,
		c.probeErrors,
		c.findings,
		c.probeDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveBody records one body handed to the extractor.
func (c *Collector) ObserveBody(size int) {
	if c == nil {
		return
	}
	c.bodyBytes.Observe(float64(size))
}

// ParamExtracted counts one extracted param of the given kind.
func (c *Collector) ParamExtracted(kind string) {
	if c == nil {
		return
	}
	c.paramsExtracted.WithLabelValues(kind).Inc()
}

// ParseError counts one rejected body.
func (c *Collector) ParseError(kind string) {
	if c == nil {
		return
	}
	c.parseErrors.WithLabelValues(kind).Inc()
}

// Probe records one sent probe and its round-trip time in seconds.
func (c *Collector) Probe(rule string, seconds float64, failed bool) {
	if c == nil {
		return
	}
	c.probes.WithLabelValues(rule).Inc()
	c.probeDuration.WithLabelValues(rule).Observe(seconds)
	if failed {
		c.probeErrors.WithLabelValues(rule).Inc()
	}
}

// Finding counts one reported finding.
func (c *Collector) Finding(rule, severity string) {
	if c == nil {
		return
	}
	c.findings.WithLabelValues(rule, severity).Inc()
}

// Server serves /metrics until Close.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Serve starts a /metrics listener on addr in the background.
func (c *Collector) Serve(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: duration.ReadHeader,
		},
		ln:     ln,
		logger: logger,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", s.Addr()))
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close shuts the server down.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
