package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/rocketboy/rocketboy/pkg/logging"
)

// NoOutput is recorded when a script ran cleanly without logging anything.
const NoOutput = "[no output]"

// ErrorPrefix prefixes the recorded text of a failed script.
const ErrorPrefix = "Error: "

// DefaultMaxAllocs bounds the number of objects a single script may allocate.
const DefaultMaxAllocs int64 = 10_000_000

// DefaultTimeout bounds the wall-clock time of a single script run.
const DefaultTimeout = 100 * time.Second

const runtimeErrorPrefix = "Runtime Error: "

// safeModules are the only Tengo stdlib modules importable by scripts.
var safeModules = stdlib.GetModuleMap("text", "fmt", "math", "times", "json", "base64", "hex", "enum")

// reserved names cannot be overridden by bindings.
var reserved = map[string]bool{"console": true, "assert": true, "fail": true}

// Result is the outcome of one script run.
type Result struct {
	// Logs holds console.log lines in call order.
	Logs []string
	// Err is the captured script fault, if any.
	Err error

	globals map[string]any
}

// Text renders the result for display: the error, the joined log lines, or
// NoOutput.
func (r *Result) Text() string {
	if r.Err != nil {
		return ErrorPrefix + r.Err.Error()
	}
	if len(r.Logs) == 0 {
		return NoOutput
	}
	return strings.Join(r.Logs, "\n")
}

// Global returns the value a binding held when the script finished.
func (r *Result) Global(name string) (any, bool) {
	v, ok := r.globals[name]
	return v, ok
}

// Sandbox executes scripts. It holds no per-script state and is safe for
// concurrent use.
type Sandbox struct {
	maxAllocs int64
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithMaxAllocs overrides DefaultMaxAllocs.
func WithMaxAllocs(n int64) Option {
	return func(s *Sandbox) {
		s.maxAllocs = n
	}
}

// WithTimeout overrides DefaultTimeout. A non-positive d leaves only the
// caller's context as a bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Sandbox) {
		s.timeout = d
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sandbox) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Sandbox.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		maxAllocs: DefaultMaxAllocs,
		timeout:   DefaultTimeout,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes source with the given bindings as global variables. Blank
// source is not executed and yields an empty result. The returned Result
// always carries the log lines produced before any fault.
func (s *Sandbox) Run(ctx context.Context, source string, bindings map[string]any) (res *Result) {
	res = &Result{}
	if strings.TrimSpace(source) == "" {
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("script panicked", "panic", r)
			res.Err = fmt.Errorf("script panic: %v", r)
		}
	}()

	script := tengo.NewScript([]byte(source))
	script.SetImports(safeModules)
	script.SetMaxAllocs(s.maxAllocs)

	if err := script.Add("console", newConsole(&res.Logs)); err != nil {
		res.Err = err
		return res
	}
	if err := script.Add("assert", assertFunc); err != nil {
		res.Err = err
		return res
	}
	if err := script.Add("fail", failFunc); err != nil {
		res.Err = err
		return res
	}
	for name, value := range bindings {
		if reserved[name] {
			res.Err = fmt.Errorf("binding %q is reserved", name)
			return res
		}
		if err := script.Add(name, value); err != nil {
			res.Err = fmt.Errorf("bind %s: %w", name, err)
			return res
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		res.Err = cleanError(err)
		s.logger.Debug("script failed", "error", res.Err)
		return res
	}

	res.globals = make(map[string]any, len(bindings))
	for name := range bindings {
		res.globals[name] = compiled.Get(name).Value()
	}
	return res
}

// newConsole builds the console object. log joins its arguments with a
// space; undefined values print as "null".
func newConsole(logs *[]string) tengo.Object {
	return &tengo.ImmutableMap{Value: map[string]tengo.Object{
		"log": &tengo.UserFunction{
			Name: "log",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				parts := make([]string, 0, len(args))
				for _, a := range args {
					parts = append(parts, stringify(a))
				}
				*logs = append(*logs, strings.Join(parts, " "))
				return tengo.UndefinedValue, nil
			},
		},
	}}
}

var assertFunc = &tengo.UserFunction{
	Name: "assert",
	Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		if !args[0].IsFalsy() {
			return tengo.TrueValue, nil
		}
		msg := "assertion failed"
		if len(args) == 2 {
			msg = "assertion failed: " + stringify(args[1])
		}
		return nil, errors.New(msg)
	},
}

var failFunc = &tengo.UserFunction{
	Name: "fail",
	Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, stringify(a))
		}
		msg := strings.Join(parts, " ")
		if msg == "" {
			msg = "script failed"
		}
		return nil, errors.New(msg)
	},
}

func stringify(o tengo.Object) string {
	if o == nil {
		return "null"
	}
	if s, ok := tengo.ToString(o); ok {
		return s
	}
	return "null"
}

// cleanError reduces a Tengo fault to the message the script raised. Runtime
// errors arrive wrapped as "Runtime Error: <msg>\n\tat (main):L:C".
func cleanError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("script aborted: %w", err)
	}
	msg := strings.TrimSpace(err.Error())
	if !strings.HasPrefix(msg, runtimeErrorPrefix) {
		if msg == err.Error() {
			return err
		}
		return errors.New(msg)
	}
	inner := err
	for u := errors.Unwrap(inner); u != nil; u = errors.Unwrap(inner) {
		inner = u
	}
	if inner != err {
		return inner
	}
	msg = strings.TrimPrefix(msg, runtimeErrorPrefix)
	if i := strings.Index(msg, "\n\tat "); i >= 0 {
		msg = msg[:i]
	}
	return errors.New(strings.TrimSpace(msg))
}
