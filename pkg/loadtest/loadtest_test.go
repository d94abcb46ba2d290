package loadtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// helperCommand re-runs the test binary as a fake runner. The fake prints
// its arguments and TARGET_* variables, then behaves according to the
// HELPER_MODE variable.
func helperCommand(t *testing.T, mode string) commandFunc {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		return exec.CommandContext(ctx, os.Args[0], cs...)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}
	fmt.Fprintf(os.Stdout, "args=%s\n", strings.Join(args, " "))
	for _, k := range []string{EnvTargetURL, EnvTargetMethod, EnvTargetBody, EnvTargetHeaders} {
		fmt.Fprintf(os.Stdout, "%s=%s\n", k, os.Getenv(k))
	}
	switch os.Getenv("HELPER_MODE") {
	case "fail":
		fmt.Fprintln(os.Stderr, "thresholds crossed")
		os.Exit(99)
	case "hang":
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}

func newTestRunner(t *testing.T, mode string) *Runner {
	r := NewRunner()
	r.command = helperCommand(t, mode)
	return r
}

func TestArgs(t *testing.T) {
	spec := &request.Spec{URL: "http://x", LoadTest: &request.LoadTestParameters{VirtualUsers: 5}}

	assert.Equal(t,
		[]string{"run", "--vus", "5", "--duration", "30s", "script.js"},
		Args(Params{Spec: spec, Script: "script.js"}))

	assert.Equal(t,
		[]string{"run", "--vus", "20", "--duration", "1m", "s.js"},
		Args(Params{Spec: spec, Script: "s.js", Load: request.LoadTestParameters{VirtualUsers: 20, Duration: "1m"}}))

	assert.Equal(t,
		[]string{"run", "--vus", "10", "--duration", "30s", "s.js"},
		Args(Params{Spec: &request.Spec{URL: "http://x"}, Script: "s.js"}))
}

func TestEnv(t *testing.T) {
	spec := &request.Spec{
		Method:  "post",
		URL:     " http://x/y ",
		Body:    `{"a":1}`,
		Headers: request.Headers{{Name: "X-A", Value: "1"}, {Name: "x-a", Value: "2"}},
	}
	env := Env(spec)
	assert.Equal(t, []string{
		"TARGET_URL=http://x/y",
		"TARGET_METHOD=POST",
		`TARGET_BODY={"a":1}`,
		`TARGET_HEADERS={"X-A":"2"}`,
	}, env)

	get := Env(&request.Spec{Method: "GET", URL: "http://x", Body: "ignored"})
	assert.Contains(t, get, "TARGET_BODY=")
	assert.Contains(t, get, "TARGET_HEADERS={}")
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t, "ok")
	spec := &request.Spec{Method: "PUT", URL: "http://target/api", Body: "payload"}

	res, err := r.Run(context.Background(), Params{Spec: spec, Script: "load.js"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "args=k6 run --vus 10 --duration 30s load.js")
	assert.Contains(t, res.Output, "TARGET_URL=http://target/api")
	assert.Contains(t, res.Output, "TARGET_METHOD=PUT")
	assert.Contains(t, res.Output, "TARGET_BODY=payload")
	assert.Equal(t, []string{"run", "--vus", "10", "--duration", "30s", "load.js"}, res.Args)
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t, "fail")
	res, err := r.Run(context.Background(), Params{Spec: &request.Spec{URL: "http://t"}, Script: "s.js"})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 99, exitErr.Code)
	require.NotNil(t, res)
	assert.Equal(t, 99, res.ExitCode)
	assert.Contains(t, res.Output, "thresholds crossed")
}

func TestRun_Cancelled(t *testing.T) {
	r := newTestRunner(t, "hang")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res, err := r.Run(ctx, Params{Spec: &request.Spec{URL: "http://t"}, Script: "s.js"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRun_Validation(t *testing.T) {
	r := NewRunner()
	ctx := context.Background()

	_, err := r.Run(ctx, Params{Spec: &request.Spec{URL: "  "}, Script: "s.js"})
	assert.ErrorIs(t, err, ErrNoTarget)

	_, err = r.Run(ctx, Params{Script: "s.js"})
	assert.ErrorIs(t, err, ErrNoTarget)

	_, err = r.Run(ctx, Params{Spec: &request.Spec{URL: "http://t"}})
	assert.ErrorIs(t, err, ErrNoScript)

	_, err = r.Run(ctx, Params{
		Spec:   &request.Spec{URL: "http://t"},
		Script: "s.js",
		Load:   request.LoadTestParameters{Duration: "forever"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestRun_BinaryMissing(t *testing.T) {
	r := NewRunner(WithBinary("rocketboy-no-such-runner-binary"))
	assert.Equal(t, "rocketboy-no-such-runner-binary", r.Binary())

	_, err := r.Run(context.Background(), Params{Spec: &request.Spec{URL: "http://t"}, Script: "s.js"})
	assert.True(t, errors.Is(err, ErrRunnerNotFound), "got %v", err)
}
