package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/pkg/portability"
	"github.com/rocketboy/rocketboy/pkg/request"
	"github.com/rocketboy/rocketboy/pkg/store"
)

type exportFlags struct {
	format   string
	encoding string
	output   string
}

func newExportCmd(a *app) *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a saved collection",
		Long: `Export a saved collection.

Formats:
  rocketboy  native collection (YAML/JSON), recommended for portability
  openapi    OpenAPI 3.0 document
  curl       one cURL command per request`,
		Example: `  rocketboy export "Users API"
  rocketboy export "Users API" -f openapi -o api.yaml
  rocketboy export "Users API" -f curl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := portability.ParseFormat(f.format)
			if !format.CanExport() {
				return fmt.Errorf("unsupported export format %q", f.format)
			}

			encoding := portability.ParseEncoding(f.encoding)
			if encoding == portability.EncodingDefault && f.output != "" {
				encoding = portability.ParseEncoding(strings.TrimPrefix(filepath.Ext(f.output), "."))
			}

			collections, err := a.newFileStore().LoadCollections(cmd.Context())
			if err != nil {
				return err
			}
			c := findCollection(collections, args[0])
			if c == nil {
				return fmt.Errorf("collection %q: %w", args[0], store.ErrNotFound)
			}

			res, err := portability.Export(c, &portability.ExportOptions{Format: format, Encoding: encoding})
			if err != nil {
				return err
			}

			if f.output == "" {
				_, err := cmd.OutOrStdout().Write(res.Data)
				return err
			}
			if err := os.WriteFile(f.output, res.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d requests to %s\n", res.RequestCount, f.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.format, "format", "f", string(portability.FormatNative), "Output format: rocketboy, openapi, curl")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "json or yaml (default: from the output file extension)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func findCollection(cs []*request.Collection, name string) *request.Collection {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	for _, c := range cs {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}
