package auth

import (
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/services/auth"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// readSecret prompts for a secret without echo. Replaced in tests.
var readSecret = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <backend>",
		Short: "Store a credential for a backend",
		Long: `Store a credential for a backend using the local keychain.

What the credential is depends on the backend:
  hetzner  API token
  aws      "<access-key-id>:<secret-access-key>"
  ipmi     "<user>:<password>" for the BMC
  pdu      SNMP write community

Examples:
  nodectl auth login hetzner
  nodectl auth login ipmi --token admin:secret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := strings.TrimSpace(args[0])
			if backend == "" {
				return fmt.Errorf("backend is required")
			}

			token, err := cmd.Flags().GetString("token")
			if err != nil {
				return err
			}

			token = strings.TrimSpace(token)
			if token == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter credential: ")
				bytes, err := readSecret()
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				token = strings.TrimSpace(string(bytes))
			}

			if token == "" {
				return fmt.Errorf("credential cannot be empty")
			}

			if err := newStore().SetToken(backend, token); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved credential for backend %s (%s)\n", auth.NormalizeBackend(backend), auth.Redact(token))
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("token", "", "Credential value (optional, overrides prompt)")

	return cmd
}

// newStore returns the credential store. Replaced in tests.
var newStore = auth.DefaultStore
