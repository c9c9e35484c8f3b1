package auth

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/nodectl/internal/node/backends"
	"nathanbeddoewebdev/nodectl/internal/services/auth"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which backends have stored credentials",
		Long: `Show which backends have stored credentials.

Example:
  nodectl auth status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := newStore()

			names := backends.List()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backends registered.")
				return nil
			}

			for _, backend := range names {
				token, err := store.GetToken(backend)
				switch {
				case err == nil:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: stored (%s)\n", backend, auth.Redact(token))
				case errors.Is(err, auth.ErrTokenNotFound):
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not stored\n", backend)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: error (%v)\n", backend, err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	return cmd
}
