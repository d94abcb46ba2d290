package executor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketboy/rocketboy/pkg/assertion"
	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/metrics"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/requestlog"
	"github.com/rocketboy/rocketboy/pkg/sandbox"
	"github.com/rocketboy/rocketboy/pkg/tracing"
)

// DefaultTimeout bounds one dispatch including reading the response body.
const DefaultTimeout = 100 * time.Second

// ContentTypeJSON is attached to every request that carries a body.
const ContentTypeJSON = "application/json; charset=utf-8"

// Executor sends requests. It keeps no state between sends and is safe for
// concurrent use.
type Executor struct {
	sandbox    *sandbox.Sandbox
	assertions *assertion.Evaluator
	transport  http.RoundTripper
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	history    requestlog.Logger
	tracer     trace.Tracer
	propagate  bool
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithTransport sets the round tripper used for dispatch.
func WithTransport(rt http.RoundTripper) Option {
	return func(e *Executor) {
		e.transport = rt
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logging.Component(logger, "executor")
	}
}

// WithMetrics records send and script metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithSandbox replaces the default script sandbox.
func WithSandbox(sb *sandbox.Sandbox) Option {
	return func(e *Executor) {
		e.sandbox = sb
	}
}

// WithHistory records every completed send.
func WithHistory(h requestlog.Logger) Option {
	return func(e *Executor) {
		e.history = h
	}
}

// WithTracer records a span per send.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithTracePropagation adds the send span's traceparent header to outgoing
// requests that do not set one.
func WithTracePropagation(on bool) Option {
	return func(e *Executor) {
		e.propagate = on
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		assertions: assertion.NewEvaluator(),
		transport:  http.DefaultTransport,
		timeout:    DefaultTimeout,
		logger:     logging.Nop(),
		tracer:     tracing.Noop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sandbox == nil {
		e.sandbox = sandbox.New(sandbox.WithLogger(e.logger))
	}
	return e
}

// Send runs spec through the pipeline, mutating it in place, and returns it.
func (e *Executor) Send(ctx context.Context, spec *request.Spec) *request.Spec {
	return e.SendTab(ctx, "", spec)
}

// SendTab is Send with the issuing tab recorded in history.
func (e *Executor) SendTab(ctx context.Context, tabID string, spec *request.Spec) *request.Spec {
	if spec == nil {
		return nil
	}

	ctx, span := e.tracer.Start(ctx, "rocketboy.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	if tabID != "" {
		span.SetAttributes(attribute.String("rocketboy.tab", tabID))
	}

	e.runPre(ctx, spec)

	if !spec.HasURL() {
		e.logger.Debug("send skipped, no url", "name", spec.Name)
		e.metrics.ObserveSend(spec.NormalizedMethod(), metrics.OutcomeSkipped, 0)
		span.SetAttributes(attribute.String("rocketboy.outcome", metrics.OutcomeSkipped))
		return spec
	}

	spec.StatusCode = nil
	spec.ResponseBody = nil
	spec.ResponseHeaders = nil
	spec.ResponseTime = nil
	spec.PostTestLog = nil
	spec.AssertionResults = nil

	resp, err := e.dispatch(ctx, spec)
	method := spec.NormalizedMethod()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", strings.TrimSpace(spec.URL)),
	)
	if err != nil {
		spec.ResponseBody = request.Ptr(sandbox.ErrorPrefix + err.Error())
		tracing.Fail(span, err)
		e.logger.Warn("send failed", "method", method, "url", spec.URL, "error", err)
		e.metrics.ObserveSend(method, metrics.OutcomeError, *spec.ResponseTime)
		e.record(ctx, tabID, spec)
		return spec
	}

	spec.StatusCode = request.Ptr(resp.status)
	spec.ResponseBody = request.Ptr(resp.body)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.status))
	spec.ResponseHeaders = resp.headers
	e.logger.Debug("send completed", "method", method, "url", spec.URL, "status", resp.status, "elapsed", resp.elapsed)
	e.metrics.ObserveSend(method, metrics.OutcomeOK, resp.elapsed)

	e.runPost(ctx, spec, resp)

	if len(spec.Assertions) > 0 {
		env := assertion.NewEnv(resp.status, resp.headers, resp.body, resp.elapsed)
		spec.AssertionResults = e.assertions.Evaluate(spec.Assertions, env)
		failed := 0
		for _, r := range spec.AssertionResults {
			if !r.Passed {
				failed++
			}
		}
		span.SetAttributes(
			attribute.Int("rocketboy.assertions", len(spec.AssertionResults)),
			attribute.Int("rocketboy.assertions_failed", failed),
		)
	}

	e.record(ctx, tabID, spec)
	return spec
}

func (e *Executor) runPre(ctx context.Context, spec *request.Spec) {
	res := e.sandbox.Run(ctx, spec.PreScript, map[string]any{
		sandbox.BindRequest: sandbox.RequestBinding(spec),
	})
	if strings.TrimSpace(spec.PreScript) != "" {
		e.metrics.ObserveScript(metrics.PhasePre, res.Err != nil)
		scriptEvent(ctx, metrics.PhasePre, res.Err)
	}
	if res.Err == nil {
		if v, ok := res.Global(sandbox.BindRequest); ok {
			if err := sandbox.ApplyRequest(spec, v); err != nil {
				res.Err = err
			}
		}
	}
	spec.PreTestLog = request.Ptr(res.Text())
}

func (e *Executor) runPost(ctx context.Context, spec *request.Spec, resp *response) {
	res := e.sandbox.Run(ctx, spec.PostScript, map[string]any{
		sandbox.BindResponseBody: resp.body,
		sandbox.BindResponse:     sandbox.ResponseBinding(resp.status, resp.headers, resp.elapsed),
		sandbox.BindRequest:      sandbox.Freeze(sandbox.RequestBinding(spec)),
	})
	if strings.TrimSpace(spec.PostScript) != "" {
		e.metrics.ObserveScript(metrics.PhasePost, res.Err != nil)
		scriptEvent(ctx, metrics.PhasePost, res.Err)
	}
	spec.PostTestLog = request.Ptr(res.Text())
}

func scriptEvent(ctx context.Context, phase string, err error) {
	attrs := []attribute.KeyValue{attribute.String("phase", phase), attribute.Bool("failed", err != nil)}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("script", trace.WithAttributes(attrs...))
}

func (e *Executor) record(ctx context.Context, tabID string, spec *request.Spec) {
	if e.history == nil {
		return
	}
	entry := requestlog.FromSpec(spec)
	entry.TabID = tabID
	entry.TraceID = tracing.TraceID(ctx)
	entry.Timestamp = e.now()
	e.history.Log(entry)
}

type response struct {
	status  int
	headers map[string]string
	body    string
	elapsed time.Duration
}

// dispatch builds and sends the request. ResponseTime is always set, even
// when dispatch fails.
func (e *Executor) dispatch(ctx context.Context, spec *request.Spec) (*response, error) {
	start := e.now()
	defer func() {
		spec.ResponseTime = request.Ptr(e.now().Sub(start))
	}()

	req, err := buildRequest(ctx, spec)
	if err != nil {
		return nil, err
	}
	if e.propagate {
		tracing.Inject(ctx, req.Header)
	}

	// fresh client per send, no cookie jar
	client := &http.Client{
		Transport: e.transport,
		Timeout:   e.timeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &response{
		status:  resp.StatusCode,
		headers: request.FlattenHTTPHeader(resp.Header),
		body:    string(body),
		elapsed: e.now().Sub(start),
	}, nil
}

func buildRequest(ctx context.Context, spec *request.Spec) (*http.Request, error) {
	method := spec.NormalizedMethod()

	var body io.Reader
	withBody := request.AllowsBody(method) && spec.Body != ""
	if withBody {
		body = strings.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSpace(spec.URL), body)
	if err != nil {
		return nil, err
	}
	if withBody {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}
	spec.Headers.Apply(req.Header)
	return req, nil
}
