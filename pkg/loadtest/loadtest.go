// Package loadtest launches an external load-test runner (k6 by default)
// against a request.
//
// The runner script is supplied by the user. The target is passed through
// the environment:
//
//	TARGET_URL      request URL
//	TARGET_METHOD   upper-cased HTTP method
//	TARGET_BODY     request body, empty for methods without one
//	TARGET_HEADERS  effective headers as a JSON object
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/request"
)

// DefaultBinary is the runner executable looked up on PATH.
const DefaultBinary = "k6"

// Environment variable names handed to the runner.
const (
	EnvTargetURL     = "TARGET_URL"
	EnvTargetMethod  = "TARGET_METHOD"
	EnvTargetBody    = "TARGET_BODY"
	EnvTargetHeaders = "TARGET_HEADERS"
)

var (
	// ErrNoScript is returned when no runner script is given.
	ErrNoScript = errors.New("no load-test script")
	// ErrNoTarget is returned when the request has no URL.
	ErrNoTarget = errors.New("request has no URL")
	// ErrRunnerNotFound is returned when the runner binary is not installed.
	ErrRunnerNotFound = errors.New("load-test runner not found")
)

// Params describe one run.
type Params struct {
	Spec   *request.Spec
	Script string

	// Load overrides the spec's own parameters. Zero fields fall back to
	// the spec, then to the package defaults.
	Load request.LoadTestParameters
}

// Result is the outcome of a finished run.
type Result struct {
	Args     []string      `json:"args"`
	Output   string        `json:"output"`
	ExitCode int           `json:"exitCode"`
	Elapsed  time.Duration `json:"elapsed"`
}

// ExitError reports a runner that exited with a non-zero status. The
// Result returned alongside it carries the captured output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "load-test runner exited with status " + strconv.Itoa(e.Code)
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Runner starts load tests. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	binary  string
	logger  *slog.Logger
	command commandFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinary sets the runner executable.
func WithBinary(path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.Component(logger, "loadtest")
	}
}

// NewRunner returns a runner using DefaultBinary unless overridden.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		binary:  DefaultBinary,
		logger:  logging.Nop(),
		command: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the configured runner executable.
func (r *Runner) Binary() string {
	return r.binary
}

// Args returns the runner arguments for p after defaults are applied.
func Args(p Params) []string {
	load := resolveLoad(p)
	return []string{
		"run",
		"--vus", strconv.Itoa(load.VirtualUsers),
		"--duration", load.Duration,
		p.Script,
	}
}

// Env returns the TARGET_* variables for spec.
func Env(spec *request.Spec) []string {
	method := spec.NormalizedMethod()
	body := ""
	if request.AllowsBody(method) {
		body = spec.Body
	}
	headers, _ := json.Marshal(spec.Headers.Effective())
	return []string{
		EnvTargetURL + "=" + strings.TrimSpace(spec.URL),
		EnvTargetMethod + "=" + method,
		EnvTargetBody + "=" + body,
		EnvTargetHeaders + "=" + string(headers),
	}
}

// Run executes the runner and waits for it to exit. Cancelling ctx kills
// the process. Output is stdout and stderr interleaved as written.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	if p.Spec == nil || !p.Spec.HasURL() {
		return nil, ErrNoTarget
	}
	if strings.TrimSpace(p.Script) == "" {
		return nil, ErrNoScript
	}
	load := resolveLoad(p)
	if _, err := time.ParseDuration(load.Duration); err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", load.Duration, err)
	}

	args := Args(p)
	cmd := r.command(ctx, r.binary, args...)
	cmd.Env = append(os.Environ(), Env(p.Spec)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	r.logger.Info("starting load test",
		"binary", r.binary,
		"url", p.Spec.URL,
		"vus", load.VirtualUsers,
		"duration", load.Duration,
	)

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Args:    args,
		Output:  out.String(),
		Elapsed: time.Since(start),
	}

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunnerNotFound, r.binary)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.ExitCode = -1
			r.logger.Warn("load test cancelled", "elapsed", res.Elapsed)
			return res, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Warn("load test failed", "exitCode", res.ExitCode, "elapsed", res.Elapsed)
			return res, &ExitError{Code: res.ExitCode}
		}
		return nil, fmt.Errorf("start load-test runner: %w", err)
	}

	r.logger.Info("load test finished", "elapsed", res.Elapsed)
	return res, nil
}

func resolveLoad(p Params) request.LoadTestParameters {
	load := request.DefaultLoadTest()
	if p.Spec != nil && p.Spec.LoadTest != nil {
		if p.Spec.LoadTest.VirtualUsers > 0 {
			load.VirtualUsers = p.Spec.LoadTest.VirtualUsers
		}
		if p.Spec.LoadTest.Duration != "" {
			load.Duration = p.Spec.LoadTest.Duration
		}
	}
	if p.Load.VirtualUsers > 0 {
		load.VirtualUsers = p.Load.VirtualUsers
	}
	if p.Load.Duration != "" {
		load.Duration = p.Load.Duration
	}
	return load
}
