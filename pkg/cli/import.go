package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
	"github.com/rocketboy/rocketboy/pkg/portability"
	"github.com/rocketboy/rocketboy/pkg/request"
)

type importFlags struct {
	format  string
	name    string
	baseURL string
	dryRun  bool
}

// importOutput is the JSON form of an import.
type importOutput struct {
	Source       string             `json:"source,omitempty"`
	Format       portability.Format `json:"format"`
	Collection   string             `json:"collection"`
	RequestCount int                `json:"requestCount"`
	FolderCount  int                `json:"folderCount"`
	Saved        bool               `json:"saved"`
}

func newImportCmd(a *app) *cobra.Command {
	var f importFlags

	cmd := &cobra.Command{
		Use:   "import <source>...",
		Short: "Import requests into a saved collection",
		Long: `Import requests from files, or from a cURL command given in quotes,
and save each source as a collection. File arguments may be glob patterns,
including ** for recursive matches.

Supported formats:
  rocketboy  native collection (YAML/JSON)
  openapi    OpenAPI 3.x or Swagger 2.0
  postman    Postman Collection v2.x
  curl       cURL command lines`,
		Example: `  rocketboy import openapi.yaml --base-url https://api.example.com
  rocketboy import collection.json -f postman
  rocketboy import 'specs/**/*.yaml' -f openapi
  rocketboy import "curl -X POST https://api.example.com/users -d '{\"name\":\"a\"}'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var format portability.Format
			if f.format != "" {
				format = portability.ParseFormat(f.format)
				if !format.CanImport() {
					return fmt.Errorf("unsupported import format %q", f.format)
				}
			}

			sources, err := expandSources(args)
			if err != nil {
				return err
			}
			if f.name != "" && len(sources) > 1 {
				return fmt.Errorf("--name needs a single source, got %d", len(sources))
			}

			var outputs []importOutput
			for _, src := range sources {
				out, err := a.importOne(cmd, src, format, f)
				if err != nil {
					return err
				}
				outputs = append(outputs, out)
			}

			if a.cfg.JSON && len(outputs) == 1 {
				return output.JSON(cmd.OutOrStdout(), outputs[0])
			}
			if a.cfg.JSON {
				return output.JSON(cmd.OutOrStdout(), outputs)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Force format (auto-detected if omitted)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Collection name (default: from the source)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Prefix for relative request URLs")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Preview import without saving")
	return cmd
}

func (a *app) importOne(cmd *cobra.Command, src string, format portability.Format, f importFlags) (importOutput, error) {
	data, filename, err := readSource(src)
	if err != nil {
		return importOutput{}, err
	}

	res, err := portability.Import(data, filename, &portability.ImportOptions{
		Format:  format,
		Name:    f.name,
		BaseURL: f.baseURL,
	})
	if err != nil {
		if filename != "" {
			return importOutput{}, fmt.Errorf("%s: %w", src, err)
		}
		return importOutput{}, err
	}
	if res.Collection.Name == "" {
		res.Collection.Name = request.DefaultCollectionName
	}

	if !f.dryRun {
		if err := a.newFileStore().SaveCollection(cmd.Context(), res.Collection); err != nil {
			return importOutput{}, fmt.Errorf("save collection: %w", err)
		}
	}

	out := importOutput{
		Source:       filename,
		Format:       res.Format,
		Collection:   res.Collection.Name,
		RequestCount: res.RequestCount,
		FolderCount:  res.FolderCount,
		Saved:        !f.dryRun,
	}
	if a.cfg.JSON {
		return out, nil
	}

	w := cmd.OutOrStdout()
	verb := "Imported"
	if f.dryRun {
		verb = "Would import"
	}
	fmt.Fprintf(w, "%s %d requests (%d folders) from %s as %q\n",
		verb, res.RequestCount, res.FolderCount, res.Format, res.Collection.Name)
	if f.dryRun {
		tw := output.Table(w)
		fmt.Fprintln(tw, "METHOD\tURL\tNAME")
		res.Collection.Walk(func(path []string, spec *request.Spec) {
			name := strings.Join(append(path, spec.Name), "/")
			fmt.Fprintf(tw, "%s\t%s\t%s\n", spec.NormalizedMethod(), spec.URL, name)
		})
		return out, tw.Flush()
	}
	return out, nil
}

// expandSources expands glob patterns among the arguments. A pattern that
// matches nothing is an error; plain paths and cURL commands pass through.
func expandSources(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if isCurl(arg) || !strings.ContainsAny(arg, "*?[{") {
			out = append(out, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		out = append(out, matches...)
	}
	return out, nil
}

func isCurl(src string) bool {
	return strings.HasPrefix(strings.TrimSpace(src), "curl ")
}

// readSource returns the bytes to import. An argument starting with "curl "
// is the command itself.
func readSource(src string) ([]byte, string, error) {
	if isCurl(src) {
		return []byte(src), "", nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", src, err)
	}
	return data, filepath.Base(src), nil
}
