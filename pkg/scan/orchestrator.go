package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketboy/rocketboy/pkg/keystore"
	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/metrics"
	"github.com/rocketboy/rocketboy/pkg/tracing"
	"github.com/rocketboy/rocketboy/pkg/zapclient"
)

// PollInterval is the fixed delay between status polls.
const PollInterval = 5 * time.Second

// Scanner is the scanner API the orchestrator drives. *zapclient.Client
// implements it.
type Scanner interface {
	Version(ctx context.Context) (string, error)
	IncludeInContext(ctx context.Context, contextName, targetURL string) (string, error)
	SpiderScan(ctx context.Context, targetURL string) (int, error)
	SpiderStatus(ctx context.Context, scanID int) (int, error)
	ActiveScan(ctx context.Context, targetURL string) (int, error)
	ActiveScanStatus(ctx context.Context, scanID int) (int, error)
	Alerts(ctx context.Context, targetURL string) (string, error)
}

var _ Scanner = (*zapclient.Client)(nil)

// ScannerFactory builds a Scanner from the stored settings.
type ScannerFactory func(baseURL, apiKey string) Scanner

// DefaultScannerFactory returns a *zapclient.Client.
func DefaultScannerFactory(baseURL, apiKey string) Scanner {
	return zapclient.New(baseURL, apiKey)
}

// Orchestrator runs scan sessions. It keeps no per-session state and is
// safe for concurrent use.
type Orchestrator struct {
	keys        keystore.Store
	newScanner  ScannerFactory
	contextName string
	maxPolls    int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer

	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithScannerFactory replaces DefaultScannerFactory.
func WithScannerFactory(f ScannerFactory) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newScanner = f
		}
	}
}

// WithContextName sets the scanner context targets are registered under.
func WithContextName(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.contextName = name
		}
	}
}

// WithMaxPolls caps the status polls per running phase. Zero means no cap.
func WithMaxPolls(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxPolls = n
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.Component(logger, "scan")
	}
}

// WithMetrics records phase and poll metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer records one span per session with an event per phase.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// NewOrchestrator creates an Orchestrator reading scanner settings from keys.
func NewOrchestrator(keys keystore.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		keys:        keys,
		newScanner:  DefaultScannerFactory,
		contextName: zapclient.DefaultContextName,
		logger:      logging.Nop(),
		tracer:      tracing.Noop(),
		interval:    PollInterval,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives s until it is Completed or Failed. Cancelling ctx stops the
// session at the next suspension point with ErrCancelled.
func (o *Orchestrator) Run(ctx context.Context, s *Session) {
	logger := o.logger.With("session", s.ID(), "target", s.TargetURL())
	ctx, span := o.tracer.Start(ctx, "rocketboy.scan", trace.WithAttributes(
		attribute.String("rocketboy.session", s.ID()),
		attribute.String("url.full", s.TargetURL()),
	))
	defer func() {
		span.SetAttributes(attribute.String("rocketboy.phase", string(s.Phase())))
		span.End()
	}()

	scanner, err := o.connect(ctx)
	if err != nil {
		o.fail(ctx, logger, s, err)
		return
	}

	if err := o.run(ctx, logger, s, scanner); err != nil {
		o.fail(ctx, logger, s, err)
	}
}

func (o *Orchestrator) connect(ctx context.Context) (Scanner, error) {
	var missing []string
	apiKey, ok, err := o.lookup(ctx, keystore.ZapAPIKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		missing = append(missing, keystore.ZapAPIKey)
	}
	baseURL, ok, err := o.lookup(ctx, keystore.ZapBaseURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		missing = append(missing, keystore.ZapBaseURL)
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}
	return o.newScanner(baseURL, apiKey), nil
}

func (o *Orchestrator) lookup(ctx context.Context, name string) (string, bool, error) {
	if o.keys == nil {
		return "", false, nil
	}
	v, ok, err := keystore.Lookup(ctx, o.keys, name)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return v, ok, nil
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, s *Session, scanner Scanner) error {
	target := s.TargetURL()

	version, err := scanner.Version(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	logger.Info("scanner reachable", "version", version)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("zap.version", version))
	s.logf("Connected to ZAP " + version)

	if _, err := scanner.IncludeInContext(ctx, o.contextName, target); err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if err := o.enter(ctx, s, PhaseContextAdded, fmt.Sprintf("Added %s to context %q", target, o.contextName)); err != nil {
		return err
	}

	spiderID, err := scanner.SpiderScan(ctx, target)
	if err != nil {
		return fmt.Errorf("start spider: %w", err)
	}
	s.setSpiderScanID(spiderID)
	if err := o.enter(ctx, s, PhaseSpiderRunning, fmt.Sprintf("Spider scan started (id %d)", spiderID)); err != nil {
		return err
	}

	if err := o.poll(ctx, s, metrics.PollSpider, "Spider", func(ctx context.Context) (int, error) {
		return scanner.SpiderStatus(ctx, spiderID)
	}); err != nil {
		return err
	}
	if err := o.enter(ctx, s, PhaseSpiderDone, "Spider scan completed"); err != nil {
		return err
	}

	activeID, err := scanner.ActiveScan(ctx, target)
	if err != nil {
		return fmt.Errorf("start active scan: %w", err)
	}
	s.setActiveScanID(activeID)
	if err := o.enter(ctx, s, PhaseActiveScanRunning, fmt.Sprintf("Active scan started (id %d)", activeID)); err != nil {
		return err
	}

	if err := o.poll(ctx, s, metrics.PollActive, "Active scan", func(ctx context.Context) (int, error) {
		return scanner.ActiveScanStatus(ctx, activeID)
	}); err != nil {
		return err
	}
	if err := o.enter(ctx, s, PhaseActiveScanDone, "Active scan completed"); err != nil {
		return err
	}

	report, err := scanner.Alerts(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch alerts: %w", err)
	}
	alerts, err := zapclient.ParseAlerts(report)
	if err != nil {
		logger.Warn("alerts report not parseable", "error", err)
	}
	summary := zapclient.Summarize(alerts)
	s.setAlerts(report, summary)

	logger.Info("scan completed", "alerts", len(alerts))
	return o.enter(ctx, s, PhaseCompleted, completionLine(len(alerts), summary))
}

// poll checks status until it reaches 100, logging one line per check.
func (o *Orchestrator) poll(ctx context.Context, s *Session, kind, label string, status func(context.Context) (int, error)) error {
	for attempt := 1; ; attempt++ {
		progress, err := status(ctx)
		if err != nil {
			return fmt.Errorf("%s status: %w", strings.ToLower(label), err)
		}
		o.metrics.ScanPoll(kind)
		s.logf(fmt.Sprintf("%s progress: %d%%", label, progress))
		if progress >= 100 {
			return nil
		}
		if o.maxPolls > 0 && attempt >= o.maxPolls {
			return ErrPollLimit
		}
		if err := o.sleep(ctx, o.interval); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) enter(ctx context.Context, s *Session, phase Phase, msg string) error {
	if err := s.transition(phase, msg); err != nil {
		return err
	}
	o.metrics.ScanPhase(string(phase))
	trace.SpanFromContext(ctx).AddEvent(string(phase), trace.WithAttributes(attribute.String("message", msg)))
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, s *Session, err error) {
	if ctx.Err() != nil {
		err = ErrCancelled
	}
	if ferr := s.fail(err); ferr != nil {
		logger.Debug("failure after terminal phase ignored", "error", err)
		return
	}
	o.metrics.ScanPhase(string(PhaseFailed))
	tracing.Fail(trace.SpanFromContext(ctx), err)

	var cfgErr *ConfigError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, ErrCancelled):
		logger.Info("scan stopped", "reason", err)
	default:
		logger.Warn("scan failed", "error", err)
	}
}

func completionLine(total int, summary []zapclient.RiskCount) string {
	if total == 0 {
		return "Scan completed: no alerts"
	}
	parts := make([]string, 0, len(summary))
	for _, rc := range summary {
		parts = append(parts, fmt.Sprintf("%s: %d", rc.Risk, rc.Count))
	}
	return fmt.Sprintf("Scan completed: %d alerts (%s)", total, strings.Join(parts, ", "))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
