// Package activescan probes the params of a JSON request body: it extracts
// them, sends one rewritten request per param, rule and payload, and lets
// each rule judge the responses.
package activescan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/waftester/jsonparams/pkg/config"
	"github.com/waftester/jsonparams/pkg/defaults"
	"github.com/waftester/jsonparams/pkg/finding"
	"github.com/waftester/jsonparams/pkg/httpclient"
	"github.com/waftester/jsonparams/pkg/iohelper"
	"github.com/waftester/jsonparams/pkg/jsonparam"
	"github.com/waftester/jsonparams/pkg/metrics"
	"github.com/waftester/jsonparams/pkg/scanrule"
	"github.com/waftester/jsonparams/pkg/tracing"
	"github.com/waftester/jsonparams/pkg/variant"
)

// ErrInvalidRequest is returned by Scan for a request it cannot send.
var ErrInvalidRequest = errors.New("activescan: invalid request")

// Config configures a Scanner.
type Config struct {
	ScanNullValues bool
	MaxBodySize    int
	Concurrency    int
	RateLimit      float64 // requests per second, 0 = unlimited
	HTTP           httpclient.Config
}

// ConfigFrom maps a loaded configuration file onto scanner settings.
func ConfigFrom(c *config.Config) Config {
	h := httpclient.DefaultConfig()
	h.Timeout = c.Scan.Timeout
	h.Proxy = c.Scan.Proxy
	h.InsecureSkipVerify = c.Scan.SkipVerify
	if c.Scan.UserAgent != "" {
		h.UserAgent = c.Scan.UserAgent
	}
	return Config{
		ScanNullValues: c.ScanNullValues,
		MaxBodySize:    c.MaxBodySize,
		Concurrency:    c.Scan.Concurrency,
		RateLimit:      c.Scan.RateLimit,
		HTTP:           h,
	}
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records scan metrics into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scanner) { s.metrics = c }
}

// WithTracerProvider sets the span source. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scanner) { s.tracer = tracing.Tracer(tp) }
}

// WithHTTPClient replaces the client built from Config.HTTP.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scanner) { s.client = c }
}

// Scanner runs active scans. It is safe for concurrent use.
type Scanner struct {
	cfg      Config
	registry *scanrule.Registry
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
}

// New creates a scanner that runs the active rules of reg.
func New(cfg Config, reg *scanrule.Registry, opts ...Option) (*Scanner, error) {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if reg == nil {
		reg = scanrule.NewDefault()
	}

	s := &Scanner{
		cfg:      cfg,
		registry: reg,
		limiter:  newLimiter(cfg.RateLimit),
		logger:   slog.Default(),
		tracer:   tracing.Tracer(nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := httpclient.New(cfg.HTTP)
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	return s, nil
}

func newLimiter(r float64) *rate.Limiter {
	if r <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(r)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

// Request is the request whose JSON body is scanned.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// ProbeError records a probe that got no usable response.
type ProbeError struct {
	Param   string `json:"param"`
	Rule    string `json:"rule"`
	Payload string `json:"payload"`
	Error   string `json:"error"`
}

// Result is the outcome of one Scan.
type Result struct {
	finding.ScanResult
	ID          string            `json:"id"`
	Fingerprint string            `json:"fingerprint"`
	Params      []jsonparam.Param `json:"params"`
	Findings    []finding.Finding `json:"findings"`
	Probes      int               `json:"probes"`
	Errors      []ProbeError      `json:"errors,omitempty"`
	RateLimited bool              `json:"rate_limited,omitempty"`

	// ParseError is set when the body is not JSON the extractor accepts.
	// No probes are sent then; the caller may fall back to other discovery.
	ParseError string `json:"parse_error,omitempty"`
}

type task struct {
	param   jsonparam.Param
	rule    scanrule.ActiveRule
	payload string
}

type baseline struct {
	status int
	body   string
}

// Scan extracts the params of req.Body and probes each one with every
// active rule. A body that does not parse yields a Result with ParseError
// set and a nil error.
func (s *Scanner) Scan(ctx context.Context, req Request) (*Result, error) {
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: bad target URL %q", ErrInvalidRequest, req.URL)
	}
	if len(req.Body) > s.cfg.MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", iohelper.ErrTooLarge, len(req.Body), s.cfg.MaxBodySize)
	}

	ctx, span := s.tracer.Start(ctx, "activescan.Scan",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("url.full", req.URL),
			attribute.Int("body.size", len(req.Body)),
		),
	)
	defer span.End()

	res := &Result{
		ScanResult: finding.ScanResult{
			Target:    req.URL,
			StartTime: time.Now(),
		},
		ID:          uuid.New().String(),
		Fingerprint: variant.Fingerprint(req.Body),
		Findings:    []finding.Finding{},
	}
	defer func() { res.Duration = time.Since(res.StartTime) }()

	logger := s.logger.With(slog.String("scan_id", res.ID), slog.String("target", req.URL))
	s.metrics.ObserveBody(len(req.Body))

	doc, err := variant.New(req.Body, s.cfg.ScanNullValues)
	if err != nil {
		kind := "unknown"
		if se, ok := jsonparam.AsSyntaxError(err); ok {
			kind = se.Kind.String()
		}
		s.metrics.ParseError(kind)
		logger.Warn("body is not parseable JSON, skipping param probes",
			slog.String("fingerprint", res.Fingerprint),
			slog.String("error", err.Error()))
		res.ParseError = err.Error()
		span.SetAttributes(attribute.String("parse.error", kind))
		span.SetStatus(codes.Ok, "unparseable body")
		return res, nil
	}

	res.Params = doc.Params()
	res.TestedParams = len(res.Params)
	for _, p := range res.Params {
		s.metrics.ParamExtracted(p.Kind())
	}
	span.SetAttributes(attribute.Int("params.count", len(res.Params)))
	if len(res.Params) == 0 {
		return res, nil
	}

	rules := s.registry.Active()
	if len(rules) == 0 {
		err := fmt.Errorf("%w: no active rules registered", finding.ErrNoPayloads)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	base, err := s.send(ctx, req, req.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "baseline failed")
		return res, fmt.Errorf("baseline request: %w", err)
	}
	if base.status == http.StatusTooManyRequests {
		res.RateLimited = true
		span.SetStatus(codes.Error, "rate limited")
		return res, fmt.Errorf("baseline request: %w", finding.ErrRateLimited)
	}

	tasks := buildTasks(res.Params, rules)
	logger.Debug("starting probes",
		slog.Int("params", len(res.Params)),
		slog.Int("rules", len(rules)),
		slog.Int("probes", len(tasks)))

	s.run(ctx, logger, req, doc, base, tasks, res)

	sortFindings(res.Findings)
	span.SetAttributes(
		attribute.Int("probes.count", res.Probes),
		attribute.Int("findings.count", len(res.Findings)),
	)

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetStatus(codes.Ok, "")
	return res, nil
}

func buildTasks(params []jsonparam.Param, rules []scanrule.ActiveRule) []task {
	var tasks []task
	for _, p := range params {
		for _, r := range rules {
			for _, payload := range r.Payloads(p) {
				tasks = append(tasks, task{param: p, rule: r, payload: payload})
			}
		}
	}
	return tasks
}

// run sends tasks through a fixed pool of workers and folds the outcomes
// into res.
func (s *Scanner) run(ctx context.Context, logger *slog.Logger, req Request, doc *variant.JSON, base baseline, tasks []task, res *Result) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	taskChan := make(chan task, s.cfg.Concurrency*2)

	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskChan {
				if ctx.Err() != nil {
					continue
				}
				if err := s.limiter.Wait(ctx); err != nil {
					continue
				}

				f, perr := s.probe(ctx, logger, req, doc, base, t)

				mu.Lock()
				res.Probes++
				if perr != nil {
					if errors.Is(perr, finding.ErrRateLimited) {
						res.RateLimited = true
					}
					res.Errors = append(res.Errors, ProbeError{
						Param:   t.param.Name,
						Rule:    t.rule.Name(),
						Payload: t.payload,
						Error:   perr.Error(),
					})
				}
				if f != nil {
					res.Findings = append(res.Findings, *f)
				}
				mu.Unlock()
			}
		}()
	}

sendLoop:
	for _, t := range tasks {
		select {
		case <-ctx.Done():
			break sendLoop
		case taskChan <- t:
		}
	}
	close(taskChan)
	wg.Wait()
}

// probe sends one injected body and asks the rule to judge the response.
func (s *Scanner) probe(ctx context.Context, logger *slog.Logger, req Request, doc *variant.JSON, base baseline, t task) (*finding.Finding, error) {
	ctx, span := s.tracer.Start(ctx, "activescan.probe", trace.WithAttributes(
		attribute.Int("rule.id", t.rule.ID()),
		attribute.String("param.name", t.param.Name),
	))
	defer span.End()

	body, err := doc.Inject(t.param, t.payload)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	resp, err := s.sendRaw(ctx, req, body)
	elapsed := time.Since(start)
	if err == nil && resp.status == http.StatusTooManyRequests {
		err = finding.ErrRateLimited
	}
	s.metrics.Probe(t.rule.Name(), elapsed.Seconds(), err != nil)

	logger.Debug("probe",
		slog.Int("rule", t.rule.ID()),
		slog.String("param", t.param.Name),
		slog.String("payload", t.payload),
		slog.Int("status", resp.status),
		slog.Duration("elapsed", elapsed),
		slog.Any("error", err))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.status))

	f := t.rule.Evaluate(scanrule.Probe{
		Param:            t.param,
		Payload:          t.payload,
		Body:             body,
		StatusCode:       resp.status,
		Header:           resp.header,
		Response:         resp.body,
		Duration:         elapsed,
		BaselineStatus:   base.status,
		BaselineResponse: base.body,
	})
	if f == nil {
		return nil, nil
	}

	f.Method = req.Method
	f.URL = req.URL
	f.Fingerprint = variant.Fingerprint(body)
	s.metrics.Finding(f.Rule, f.Severity.String())
	span.AddEvent("finding", trace.WithAttributes(attribute.String("severity", f.Severity.String())))
	logger.Info("finding",
		slog.String("rule", f.Rule),
		slog.String("param", f.Param),
		slog.String("severity", f.Severity.String()),
		slog.String("fingerprint", f.Fingerprint))
	return f, nil
}

type response struct {
	status int
	header http.Header
	body   string
}

func (s *Scanner) send(ctx context.Context, req Request, body string) (baseline, error) {
	resp, err := s.sendRaw(ctx, req, body)
	if err != nil {
		return baseline{}, err
	}
	return baseline{status: resp.status, body: resp.body}, nil
}

func (s *Scanner) sendRaw(ctx context.Context, req Request, body string) (response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader([]byte(body)))
	if err != nil {
		return response{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", defaults.ContentTypeJSON)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return response{}, ctx.Err()
		}
		if isTimeout(err) {
			return response{}, fmt.Errorf("%w: %v", finding.ErrTimeout, err)
		}
		return response{}, fmt.Errorf("%w: %v", finding.ErrTargetUnreachable, err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	data := iohelper.ReadBodyOrLog(resp.Body, defaults.MaxResponseSize, s.logger)
	return response{status: resp.StatusCode, header: resp.Header, body: string(data)}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

func sortFindings(fs []finding.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Param != fs[j].Param {
			return fs[i].Param < fs[j].Param
		}
		if fs[i].RuleID != fs[j].RuleID {
			return fs[i].RuleID < fs[j].RuleID
		}
		return fs[i].Payload < fs[j].Payload
	})
}
