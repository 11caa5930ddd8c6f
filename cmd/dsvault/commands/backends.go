package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/dsvault/internal/config"
	"github.com/systmms/dsvault/pkg/backend"
)

func NewBackendsCommand(cfg *config.Config) *cobra.Command {
	var auth bool

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List known backend kinds",
		Long: `Display the secret engine kinds (or, with --auth, the auth method kinds)
dsvault recognizes, with their default mount path and description.

Kinds not listed here are still reported by 'dsvault mounts' as unregistered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := backend.SecretEngines()
			if auth {
				registry = backend.AuthMethods()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDEFAULT PATH\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t------------\t-----------\n")

			for _, t := range registry.Types() {
				info, _ := registry.Lookup(t)
				_, _ = fmt.Fprintf(w, "%s\t%s/\t%s\n", t, info.DefaultPath, info.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&auth, "auth", false, "List auth method kinds instead of secret engines")

	return cmd
}
