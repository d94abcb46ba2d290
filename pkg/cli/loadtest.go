package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/internal/cliconfig"
	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
	"github.com/rocketboy/rocketboy/pkg/loadtest"
	"github.com/rocketboy/rocketboy/pkg/request"
)

type loadTestFlags struct {
	requestFlags
	script   string
	vus      int
	duration string
	binary   string
}

func newLoadTestCmd(a *app) *cobra.Command {
	var f loadTestFlags

	cmd := &cobra.Command{
		Use:   "loadtest [url]",
		Short: "Run an external load test against a request",
		Long: `Run an external load-test runner (k6 by default) with a user script.

The request is passed to the script through the environment:
TARGET_URL, TARGET_METHOD, TARGET_BODY and TARGET_HEADERS (a JSON object).
Virtual users and duration default to the request's own parameters, then
to the settings.`,
		Example: `  rocketboy loadtest --script load.js --vus 20 --duration 1m https://api.example.com/users
  rocketboy loadtest --script load.js --from requests/users.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := f.build(cmd, args)
			if err != nil {
				return err
			}
			if spec.LoadTest == nil {
				settings, err := a.newFileStore().LoadSettings(cmd.Context())
				if err != nil {
					return err
				}
				lt := settings.LoadTestDefaults()
				spec.LoadTest = &lt
			}

			binary := a.cfg.LoadTestBinary
			if cmd.Flags().Changed("binary") {
				binary = f.binary
				a.cfg.Sources["loadTestBinary"] = cliconfig.SourceFlag
			}
			runner := loadtest.NewRunner(loadtest.WithBinary(binary), loadtest.WithLogger(a.log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, runErr := runner.Run(ctx, loadtest.Params{
				Spec:   spec,
				Script: f.script,
				Load:   request.LoadTestParameters{VirtualUsers: f.vus, Duration: f.duration},
			})
			if res == nil {
				return runErr
			}

			w := cmd.OutOrStdout()
			if a.cfg.JSON {
				if err := output.JSON(w, res); err != nil {
					return err
				}
			} else {
				fmt.Fprint(w, res.Output)
				fmt.Fprintf(w, "Load test finished in %s (exit %d)\n", res.Elapsed.Round(time.Millisecond), res.ExitCode)
			}

			// A non-zero exit still printed the runner output above.
			return runErr
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.script, "script", "", "Runner script file (required)")
	cmd.Flags().IntVar(&f.vus, "vus", 0, "Virtual users")
	cmd.Flags().StringVar(&f.duration, "duration", "", "Test duration, e.g. 30s or 1m")
	cmd.Flags().StringVar(&f.binary, "binary", "", "Runner executable (default: loadTestBinary from config)")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}
