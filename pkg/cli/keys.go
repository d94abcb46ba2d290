package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rocketboy/rocketboy/pkg/cli/internal/output"
	"github.com/rocketboy/rocketboy/pkg/keystore"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored keys such as the ZAP API key",
		Long: `Manage the named keys kept in the local key store.

The scanner reads ` + keystore.ZapAPIKey + ` and ` + keystore.ZapBaseURL + `.`,
	}

	withKeys := func(fn func(ctx context.Context, cmd *cobra.Command, keys keystore.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			keys, err := keystore.OpenSQLite(a.cfg.KeystorePath())
			if err != nil {
				return err
			}
			defer keys.Close()
			return fn(cmd.Context(), cmd, keys, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <name> [value]",
			Short: "Store a key (prompted for, or read from stdin, when omitted)",
			Args:  cobra.RangeArgs(1, 2),
			RunE: withKeys(func(ctx context.Context, cmd *cobra.Command, keys keystore.Store, args []string) error {
				var value string
				if len(args) == 2 {
					value = args[1]
				} else {
					var err error
					if value, err = readKeyValue(cmd, args[0]); err != nil {
						return err
					}
				}
				if err := keys.SetKey(ctx, args[0], value); err != nil {
					return err
				}
				if !a.cfg.JSON {
					fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", args[0])
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "Print a key's value",
			Args:  cobra.ExactArgs(1),
			RunE: withKeys(func(ctx context.Context, cmd *cobra.Command, keys keystore.Store, args []string) error {
				v, ok, err := keys.GetKey(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %q not found", args[0])
				}
				if a.cfg.JSON {
					return output.JSON(cmd.OutOrStdout(), map[string]string{"name": args[0], "value": v})
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			}),
		},
		&cobra.Command{
			Use:     "rm <name>",
			Aliases: []string{"remove", "delete"},
			Short:   "Remove a key",
			Args:    cobra.ExactArgs(1),
			RunE: withKeys(func(ctx context.Context, cmd *cobra.Command, keys keystore.Store, args []string) error {
				if err := keys.RemoveKey(ctx, args[0]); err != nil {
					return err
				}
				if !a.cfg.JSON {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List stored key names",
			Args:    cobra.NoArgs,
			RunE: withKeys(func(ctx context.Context, cmd *cobra.Command, keys keystore.Store, _ []string) error {
				names, err := keys.Keys(ctx)
				if err != nil {
					return err
				}
				if a.cfg.JSON {
					if names == nil {
						names = []string{}
					}
					return output.JSON(cmd.OutOrStdout(), map[string][]string{"keys": names})
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}),
		},
	)
	return cmd
}

// readKeyValue prompts with a masked input on a terminal and otherwise
// reads one line from stdin.
func readKeyValue(cmd *cobra.Command, name string) (string, error) {
	if isTerminal(cmd.InOrStdin()) {
		var value string
		err := huh.NewInput().
			Title("Value for " + name).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("value is required")
				}
				return nil
			}).
			Run()
		return value, err
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
