package config

import (
	"nathanbeddoewebdev/nodectl/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nodectl configuration",
		Long: "View and modify persistent nodectl settings.\n\n" +
			"Configuration is stored at ~/.config/nodectl/config.json.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())

	return cmd
}
