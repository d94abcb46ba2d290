// Package assertion evaluates response assertions written as expr-lang
// boolean expressions, such as `status == 200 && json.id > 0`. The helpers
// jsonpath, schema, jwt and xpath inspect structured bodies.
package assertion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// Env is the variable set visible to an assertion expression.
type Env struct {
	Status    int               `expr:"status"`
	Headers   map[string]string `expr:"headers"`
	Body      string            `expr:"body"`
	JSON      any               `expr:"json"`
	ElapsedMs int64             `expr:"elapsedMs"`
}

// NewEnv builds an Env from a response. JSON is nil unless body decodes.
// Header names are lower-cased.
func NewEnv(status int, headers map[string]string, body string, elapsed time.Duration) Env {
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}
	env := Env{
		Status:    status,
		Headers:   lowered,
		Body:      body,
		ElapsedMs: elapsed.Milliseconds(),
	}
	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err == nil {
		env.JSON = decoded
	}
	return env
}

// ErrNotBoolean is returned when an expression does not yield a bool.
var ErrNotBoolean = errors.New("assertion must evaluate to a boolean")

// Evaluator compiles and runs assertion expressions. Compiled programs are
// cached, so an Evaluator should be shared. It is safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator returns an empty Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// Check evaluates one expression.
func (e *Evaluator) Check(expression string, env Env) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", expression, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", expression, err)
	}
	passed, ok := out.(bool)
	if !ok {
		return false, ErrNotBoolean
	}
	return passed, nil
}

// Evaluate runs every expression and reports one result each. Blank
// expressions are skipped.
func (e *Evaluator) Evaluate(expressions []string, env Env) []request.AssertionResult {
	var results []request.AssertionResult
	for _, raw := range expressions {
		expression := strings.TrimSpace(raw)
		if expression == "" {
			continue
		}
		res := request.AssertionResult{Expression: expression}
		passed, err := e.Check(expression, env)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Passed = passed
		}
		results = append(results, res)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []request.AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	opts := append([]expr.Option{expr.Env(Env{}), expr.AsBool()}, functions()...)
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if existing, ok := e.cache[expression]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}
