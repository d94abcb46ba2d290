package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/pkg/cli/internal/flags"
	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
	"github.com/rocketboy/rocketboy/pkg/cli/internal/parse"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/sandbox"
)

// requestFlags describe a request on the command line. send and loadtest
// share them.
type requestFlags struct {
	from    string
	name    string
	method  string
	headers flags.StringSlice
	data    string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.from, "from", "", "Load the request from a saved request file")
	fs.StringVar(&f.name, "name", "", "Request name")
	fs.StringVarP(&f.method, "method", "X", "", "HTTP method (default GET)")
	fs.VarP(&f.headers, "header", "H", "Request header \"Name: value\" (repeatable)")
	fs.StringVarP(&f.data, "data", "d", "", "Request body, or @file")
}

// build returns the request described by the flags. Flags given
// explicitly override the fields of a --from file.
func (f *requestFlags) build(cmd *cobra.Command, args []string) (*request.Spec, error) {
	spec := request.New()
	if f.from != "" {
		loaded, err := loadSpecFile(f.from)
		if err != nil {
			return nil, err
		}
		spec = loaded
	}

	if len(args) > 0 {
		spec.URL = args[0]
	}
	if spec.URL == "" {
		return nil, errors.New("a URL is required (argument or --from)")
	}

	changed := cmd.Flags().Changed
	if changed("name") {
		spec.Name = f.name
	}
	if changed("method") {
		spec.Method = strings.ToUpper(f.method)
	}
	if len(f.headers) > 0 {
		hs, err := parse.Headers(f.headers)
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			spec.Headers = spec.Headers.Set(h.Name, h.Value)
		}
	}
	if changed("data") {
		body, err := readArg(f.data)
		if err != nil {
			return nil, fmt.Errorf("--data: %w", err)
		}
		spec.Body = body
		if !changed("method") && f.from == "" {
			spec.Method = request.MethodPost
		}
	}
	return spec, nil
}

type sendFlags struct {
	requestFlags
	pre     string
	post    string
	asserts flags.StringSlice
	include bool
}

func newSendCmd(a *app) *cobra.Command {
	var f sendFlags

	cmd := &cobra.Command{
		Use:   "send [url]",
		Short: "Send one request with optional scripts and assertions",
		Long: `Send one HTTP request.

A pre-script runs before dispatch and may change the request through the
"request" object. A post-script runs after a response arrives and sees
"response". Scripts print with console.log and abort with fail.
Assertions are expressions over status, headers, body, json and
responseTime; the command fails when any assertion fails.`,
		Example: `  rocketboy send https://api.example.com/users
  rocketboy send -X POST -H "Content-Type: application/json" -d '{"name":"a"}' https://api.example.com/users
  rocketboy send --pre 'request.headers["X-Trace"] = "1"' --assert 'status == 200' https://api.example.com
  rocketboy send --from ~/.local/share/rocketboy/requests/users.yaml --post @check.tengo`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := f.build(cmd, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pre") {
				if spec.PreScript, err = readArg(f.pre); err != nil {
					return fmt.Errorf("--pre: %w", err)
				}
			}
			if cmd.Flags().Changed("post") {
				if spec.PostScript, err = readArg(f.post); err != nil {
					return fmt.Errorf("--post: %w", err)
				}
			}
			spec.Assertions = append(spec.Assertions, f.asserts...)

			stopTracing, err := a.startTracing(cmd.Context())
			if err != nil {
				return err
			}
			defer stopTracing()

			a.newExecutor().Send(cmd.Context(), spec)

			if a.cfg.JSON {
				if err := output.JSON(cmd.OutOrStdout(), spec); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), spec, f.include)
			}
			return sendError(spec)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.pre, "pre", "", "Pre-request script, or @file")
	cmd.Flags().StringVar(&f.post, "post", "", "Post-response script, or @file")
	cmd.Flags().Var(&f.asserts, "assert", "Assertion expression (repeatable)")
	cmd.Flags().BoolVarP(&f.include, "include", "i", false, "Include response headers in the output")
	return cmd
}

// sendError reports a transport failure or failed assertions.
func sendError(spec *request.Spec) error {
	if spec.StatusCode == nil && spec.ResponseBody != nil {
		return fmt.Errorf("request failed: %s", strings.TrimPrefix(*spec.ResponseBody, sandbox.ErrorPrefix))
	}
	failed := 0
	for _, r := range spec.AssertionResults {
		if !r.Passed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrAssertionsFailed, failed, len(spec.AssertionResults))
	}
	return nil
}

func printResult(w io.Writer, spec *request.Spec, include bool) {
	if spec.PreTestLog != nil && *spec.PreTestLog != "" {
		fmt.Fprintf(w, "--- pre-script\n%s\n", strings.TrimRight(*spec.PreTestLog, "\n"))
	}

	if spec.StatusCode == nil {
		if spec.ResponseBody != nil {
			fmt.Fprintln(w, *spec.ResponseBody)
		}
		return
	}

	elapsed := ""
	if spec.ResponseTime != nil {
		elapsed = " (" + spec.ResponseTime.String() + ")"
	}
	fmt.Fprintf(w, "%s %s -> %d %s%s\n", spec.NormalizedMethod(), spec.URL,
		*spec.StatusCode, http.StatusText(*spec.StatusCode), elapsed)

	if include {
		names := make([]string, 0, len(spec.ResponseHeaders))
		for name := range spec.ResponseHeaders {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, spec.ResponseHeaders[name])
		}
	}
	fmt.Fprintln(w)
	if spec.ResponseBody != nil {
		fmt.Fprintln(w, *spec.ResponseBody)
	}

	if spec.PostTestLog != nil && *spec.PostTestLog != "" {
		fmt.Fprintf(w, "--- post-script\n%s\n", strings.TrimRight(*spec.PostTestLog, "\n"))
	}
	if len(spec.AssertionResults) > 0 {
		fmt.Fprintln(w, "--- assertions")
		for _, r := range spec.AssertionResults {
			switch {
			case r.Passed:
				fmt.Fprintf(w, "PASS  %s\n", r.Expression)
			case r.Error != "":
				fmt.Fprintf(w, "FAIL  %s (%s)\n", r.Expression, r.Error)
			default:
				fmt.Fprintf(w, "FAIL  %s\n", r.Expression)
			}
		}
	}
}

// readArg returns s, or the contents of the file it names when it starts
// with '@'.
func readArg(s string) (string, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// loadSpecFile reads a saved request (YAML, or legacy JSON).
func loadSpecFile(path string) (*request.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec := request.New()
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}
