package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/internal/cliconfig"
	"github.com/rocketboy/rocketboy/pkg/api"
	"github.com/rocketboy/rocketboy/pkg/executor"
	"github.com/rocketboy/rocketboy/pkg/keystore"
	"github.com/rocketboy/rocketboy/pkg/metrics"
	"github.com/rocketboy/rocketboy/pkg/requestlog"
	"github.com/rocketboy/rocketboy/pkg/sandbox"
	"github.com/rocketboy/rocketboy/pkg/scan"
	"github.com/rocketboy/rocketboy/pkg/store"
	"github.com/rocketboy/rocketboy/pkg/tabs"
	"github.com/rocketboy/rocketboy/pkg/tracing"
)

// tracingShutdownTimeout bounds the final span flush.
const tracingShutdownTimeout = 5 * time.Second

type serveFlags struct {
	listen  string
	dataDir string
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rocketboy API server",
		Long: `Run the rocketboy API server.

The server holds the open request tabs, sends them, runs ZAP scans with
live progress over a websocket, and serves the request history, settings,
collections and stored keys. It stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("listen") {
				a.cfg.ListenAddr = f.listen
				a.cfg.Sources["listenAddr"] = cliconfig.SourceFlag
			}
			if flags.Changed("data-dir") {
				a.cfg.DataDir = f.dataDir
				a.cfg.Sources["dataDir"] = cliconfig.SourceFlag
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd)
		},
	}

	cmd.Flags().StringVarP(&f.listen, "listen", "l", cliconfig.DefaultListenAddr, "API listen address")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Data directory for keys, requests and collections")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command) error {
	stopTracing, err := a.startTracing(ctx)
	if err != nil {
		return err
	}
	defer stopTracing()

	keys, err := a.openKeys(ctx)
	if err != nil {
		return err
	}
	defer keys.Close()

	m := metrics.New()
	history := requestlog.NewMemoryStore(a.cfg.MaxHistory)
	exec := a.newExecutor(executor.WithMetrics(m), executor.WithHistory(history))
	wb := tabs.NewWorkbench(exec, tabs.WithLogger(a.log))
	scans := scan.NewManager(a.newOrchestrator(keys, scan.WithMetrics(m)))

	srv := api.New(api.Deps{
		Workbench: wb,
		Scans:     scans,
		History:   history,
		Files:     a.newFileStore(),
		Keys:      keys,
	},
		api.WithLogger(a.log),
		api.WithMetrics(m),
		api.WithVersion(buildVersion().Version),
		api.WithAddr(a.cfg.ListenAddr),
	)

	return srv.ListenAndServe(ctx, func(addr string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rocketboy API listening on http://%s\n", addr)
	})
}

// startTracing exports spans to the configured OTLP collector. Without an
// endpoint it does nothing and components keep their no-op tracer.
func (a *app) startTracing(ctx context.Context) (func(), error) {
	if a.cfg.TracingEndpoint == "" {
		return func() {}, nil
	}
	p, err := tracing.New(ctx, a.cfg.Tracing(buildVersion().Version))
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.traces = p
	a.log.Debug("tracing enabled", "endpoint", a.cfg.TracingEndpoint, "ratio", a.cfg.TraceRatio)
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := p.Shutdown(sctx); err != nil {
			a.log.Warn("tracing shutdown failed", "error", err)
		}
	}, nil
}

// openKeys opens the SQLite key store in the data directory and seeds the
// scanner base URL when none is stored.
func (a *app) openKeys(ctx context.Context) (*keystore.SQLiteStore, error) {
	keys, err := keystore.OpenSQLite(a.cfg.KeystorePath())
	if err != nil {
		return nil, err
	}
	if _, ok, err := keystore.Lookup(ctx, keys, keystore.ZapBaseURL); err != nil {
		_ = keys.Close()
		return nil, err
	} else if !ok && a.cfg.ZapBaseURL != "" {
		if err := keys.SetKey(ctx, keystore.ZapBaseURL, a.cfg.ZapBaseURL); err != nil {
			_ = keys.Close()
			return nil, err
		}
		a.log.Debug("seeded scanner base URL", "url", a.cfg.ZapBaseURL)
	}
	return keys, nil
}

func (a *app) newExecutor(opts ...executor.Option) *executor.Executor {
	base := []executor.Option{
		executor.WithTimeout(a.cfg.SendTimeout),
		executor.WithLogger(a.log),
		executor.WithSandbox(sandbox.New(sandbox.WithLogger(a.log))),
		executor.WithTracer(a.traces.Tracer()),
		executor.WithTracePropagation(a.cfg.TracePropagation),
	}
	return executor.New(append(base, opts...)...)
}

func (a *app) newOrchestrator(keys keystore.Store, opts ...scan.Option) *scan.Orchestrator {
	base := []scan.Option{
		scan.WithMaxPolls(a.cfg.ScanMaxPolls),
		scan.WithLogger(a.log),
		scan.WithTracer(a.traces.Tracer()),
	}
	return scan.NewOrchestrator(keys, append(base, opts...)...)
}

func (a *app) newFileStore() *store.FileStore {
	configDir, err := cliconfig.GlobalConfigPath()
	if err != nil {
		configDir = ""
	}
	return store.NewFileStore(configDir, a.cfg.DataDir, store.WithLogger(a.log))
}
