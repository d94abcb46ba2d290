package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/internal/cliconfig"
	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
)

// configKeys lists config keys in display order.
var configKeys = []string{
	"listenAddr", "dataDir", "logLevel", "logFormat", "logFile", "zapBaseUrl",
	"loadTestBinary", "maxHistory", "scanMaxPolls", "sendTimeout", "serverUrl",
	"tracingEndpoint", "tracingInsecure", "traceRatio", "tracePropagation",
	"verbose", "json",
}

// configShowOutput is the JSON form of the effective config.
type configShowOutput struct {
	Config  *cliconfig.Config `json:"config"`
	Sources map[string]string `json:"sources"`
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration and where each value came from
(default, global, local, file, env or flag).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if a.cfg.JSON {
				return output.JSON(w, configShowOutput{Config: a.cfg, Sources: sourcesOf(a.cfg)})
			}

			var node yaml.Node
			if err := node.Encode(a.cfg); err != nil {
				return err
			}
			values := map[string]string{}
			for i := 0; i+1 < len(node.Content); i += 2 {
				values[node.Content[i].Value] = node.Content[i+1].Value
			}

			sources := sourcesOf(a.cfg)
			tw := output.Table(w)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
			for _, k := range configKeys {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k, values[k], sources[k])
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where configuration files are read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			global, err := cliconfig.GlobalConfigPath()
			if err != nil {
				return err
			}
			local, err := cliconfig.FindLocalConfig()
			if err != nil {
				return err
			}
			paths := map[string]string{
				"global": filepath.Join(global, cliconfig.GlobalConfigFileNames[0]),
				"local":  local,
				"data":   a.cfg.DataDir,
				"keys":   a.cfg.KeystorePath(),
			}
			if a.cfg.JSON {
				return output.JSON(cmd.OutOrStdout(), paths)
			}
			tw := output.Table(cmd.OutOrStdout())
			for _, k := range []string{"global", "local", "data", "keys"} {
				v := paths[k]
				if v == "" {
					v = "(none)"
				}
				fmt.Fprintf(tw, "%s\t%s\n", k, v)
			}
			return tw.Flush()
		},
	})
	return cmd
}

// sourcesOf fills in "default" for keys no layer set.
func sourcesOf(cfg *cliconfig.Config) map[string]string {
	out := make(map[string]string, len(configKeys))
	for _, k := range configKeys {
		src := cfg.Sources[k]
		if src == "" {
			src = cliconfig.SourceDefault
		}
		out[k] = src
	}
	return out
}
