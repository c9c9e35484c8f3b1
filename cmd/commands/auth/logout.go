package auth

import (
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/services/auth"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout <backend>",
		Short: "Remove the stored credential for a backend",
		Long: `Remove the stored credential for a backend from the local keychain.

Example:
  nodectl auth logout hetzner`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := strings.TrimSpace(args[0])

			err := newStore().DeleteToken(backend)
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "Removed credential for backend %s\n", auth.NormalizeBackend(backend))
				return nil
			case errors.Is(err, auth.ErrTokenNotFound):
				fmt.Fprintf(cmd.OutOrStdout(), "No credential stored for backend %s\n", auth.NormalizeBackend(backend))
				return nil
			default:
				return err
			}
		},
		SilenceUsage: true,
	}

	return cmd
}
