package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
)

type healthResult struct {
	Status  string `json:"status"`
	URL     string `json:"url"`
	Version string `json:"version,omitempty"`
	Tabs    int    `json:"tabs"`
	Error   string `json:"error,omitempty"`
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check if the rocketboy server is healthy and reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseURL := a.cfg.APIURL()
			client := NewClient(baseURL)
			w := cmd.OutOrStdout()

			h, err := client.Health(cmd.Context())
			if err != nil {
				res := healthResult{Status: "unhealthy", URL: baseURL, Error: err.Error()}
				if a.cfg.JSON {
					_ = output.JSON(w, res)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "unhealthy: %s\n", FormatConnectionError(err))
				}
				return errors.New("server is not healthy")
			}

			res := healthResult{Status: "healthy", URL: baseURL, Version: h.Version, Tabs: h.Tabs}
			if a.cfg.JSON {
				return output.JSON(w, res)
			}
			fmt.Fprintf(w, "healthy (%s, %d open tabs)\n", h.Version, h.Tabs)
			return nil
		},
	}
}
