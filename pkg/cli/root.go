package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/internal/cliconfig"
	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/tracing"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// app is the state shared by one invocation's commands.
type app struct {
	// persistent flags
	configPath string
	server     string
	json       bool
	verbose    bool

	cfg    *cliconfig.Config
	log    *slog.Logger
	traces *tracing.Provider
}

// NewRootCmd builds the rocketboy command tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: logging.Nop()}

	root := &cobra.Command{
		Use:   "rocketboy",
		Short: "rocketboy sends, scripts and security-scans HTTP requests",
		Long: `rocketboy is an API testing tool. It sends HTTP requests with sandboxed
pre and post scripts, runs ZAP security scans against their targets and
drives external load tests.

Configuration is read from $XDG_CONFIG_HOME/rocketboy/config.yaml, then
.rocketboyrc.yaml in the current directory, then ROCKETBOY_* environment
variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true, // Execute prints the error
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default: .rocketboyrc.yaml, then the global config)")
	pf.StringVar(&a.server, "server", "", "rocketboy API base URL for client commands")
	pf.BoolVar(&a.json, "json", false, "Output command results in JSON format")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newVersionCmd(a),
		newServeCmd(a),
		newSendCmd(a),
		newScanCmd(a),
		newKeysCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newLoadTestCmd(a),
		newHealthCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if code := Main(); code != 0 {
		os.Exit(code)
	}
}

// Main runs the CLI against os.Args and returns the process exit code.
func Main() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// load resolves the layered configuration, applies persistent flags on top
// and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := cliconfig.LoadAll(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = a.server
		cfg.Sources["serverUrl"] = cliconfig.SourceFlag
	}
	if flags.Changed("json") {
		cfg.JSON = a.json
		cfg.Sources["json"] = cliconfig.SourceFlag
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
		cfg.Sources["verbose"] = cliconfig.SourceFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	a.log = logging.New(lc)
	return nil
}
