package auth

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored backend credentials",
		Long: `Manage stored backend credentials.

Use this command group to store API tokens, BMC passwords, and SNMP
communities in the local keychain. Stored credentials are used whenever
the matching flags are not given on the command line.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(LogoutCommand())

	return cmd
}
