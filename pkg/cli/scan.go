package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/scan"
)

// cliScanHandle keys the single scan a local run starts.
const cliScanHandle = "cli"

type scanFlags struct {
	report string
	remote bool
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Run a ZAP spider and active scan against a URL",
		Long: `Run a ZAP security scan: include the URL in a context, spider it,
actively scan it and collect the alerts.

The scanner is located through the ZapApiKey and ZapBaseUrl keys (see
"rocketboy keys"). By default the scan runs in this process; with
--server, or --remote against the configured server, it runs on a
rocketboy API server and progress is streamed over a websocket.`,
		Example: `  rocketboy keys set ZapApiKey changeme
  rocketboy scan https://staging.example.com
  rocketboy scan --server http://127.0.0.1:4300 --report alerts.json https://staging.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				snap *scan.Snapshot
				err  error
			)
			if f.remote || cmd.Flags().Changed("server") {
				snap, err = a.scanRemote(ctx, cmd, args[0])
			} else {
				snap, err = a.scanLocal(ctx, cmd, args[0])
			}
			if err != nil {
				return err
			}
			return a.finishScan(cmd, snap, f.report)
		},
	}

	cmd.Flags().StringVar(&f.report, "report", "", "Write the raw alerts report to a file")
	cmd.Flags().BoolVar(&f.remote, "remote", false, "Run the scan on the configured rocketboy server")
	return cmd
}

func (a *app) scanLocal(ctx context.Context, cmd *cobra.Command, target string) (*scan.Snapshot, error) {
	stopTracing, err := a.startTracing(ctx)
	if err != nil {
		return nil, err
	}
	defer stopTracing()

	keys, err := a.openKeys(ctx)
	if err != nil {
		return nil, err
	}
	defer keys.Close()

	mgr := scan.NewManager(a.newOrchestrator(keys))
	defer mgr.Close()

	sess, err := mgr.Start(cliScanHandle, target)
	if err != nil {
		return nil, err
	}
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				snap := sess.Snapshot()
				return &snap, nil
			}
			a.printEvent(cmd.OutOrStdout(), ev)
		case <-ctx.Done():
			_ = mgr.Cancel(cliScanHandle)
			<-sess.Done()
			snap := sess.Snapshot()
			return &snap, nil
		}
	}
}

func (a *app) scanRemote(ctx context.Context, cmd *cobra.Command, target string) (*scan.Snapshot, error) {
	client := NewClient(a.cfg.APIURL())

	spec := request.New()
	spec.URL = target
	tab, err := client.OpenTab(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("open tab: %s", FormatConnectionError(err))
	}
	defer func() {
		cleanup, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.CloseTab(cleanup, tab.ID); err != nil {
			a.log.Debug("failed to close scan tab", "tab", tab.ID, "error", err)
		}
	}()

	if _, err := client.StartScan(ctx, tab.ID, ""); err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}

	phase, err := client.StreamScan(ctx, tab.ID, func(ev scan.Event) {
		a.printEvent(cmd.OutOrStdout(), ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	// The stream ends at a terminal phase or when ctx is cancelled.
	final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ctx.Err() != nil {
		if err := client.CancelScan(final, tab.ID); err != nil {
			a.log.Debug("failed to cancel scan", "tab", tab.ID, "error", err)
		}
	}
	snap, err := client.GetScan(final, tab.ID)
	if err != nil {
		return nil, err
	}
	a.log.Debug("scan stream closed", "phase", phase, "state", snap.Phase)
	return snap, nil
}

func (a *app) printEvent(w io.Writer, ev scan.Event) {
	if a.cfg.JSON {
		return
	}
	fmt.Fprintf(w, "%s  %-18s %s\n", ev.Time.Format(time.TimeOnly), ev.Phase, ev.Message)
}

// finishScan prints the final state, writes the report and turns a failed
// scan into an error.
func (a *app) finishScan(cmd *cobra.Command, snap *scan.Snapshot, reportPath string) error {
	w := cmd.OutOrStdout()
	if a.cfg.JSON {
		if err := output.JSON(w, snap); err != nil {
			return err
		}
	} else if len(snap.Summary) > 0 {
		tw := output.Table(w)
		fmt.Fprintln(tw, "RISK\tALERTS")
		for _, rc := range snap.Summary {
			fmt.Fprintf(tw, "%s\t%d\n", rc.Risk, rc.Count)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if reportPath != "" && snap.Alerts != nil {
		if err := os.WriteFile(reportPath, []byte(*snap.Alerts), 0o600); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if !a.cfg.JSON {
			fmt.Fprintf(w, "Report written to %s\n", reportPath)
		}
	}

	if snap.Phase == scan.PhaseFailed {
		if snap.Error != "" {
			return fmt.Errorf("%w: %s", ErrScanFailed, snap.Error)
		}
		return ErrScanFailed
	}
	return nil
}
