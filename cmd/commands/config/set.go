package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/node/backends"
	"nathanbeddoewebdev/nodectl/internal/util"

	"github.com/spf13/cobra"
)

// SetCommand returns the "config set" command.
func SetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a persistent configuration value.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  nodectl config set default-backend ipmi\n" +
			"  nodectl config set wait-timeout 2m",
		Args: cobra.ExactArgs(2),
		Run:  runSet,
	}

	return cmd
}

// validators maps key names to checks that need more than the key's own
// Validate, such as the backend registry.
var validators = map[string]func(cmd *cobra.Command, value string) error{
	"default-backend": validateBackend,
}

func runSet(cmd *cobra.Command, args []string) {
	key := util.NormalizeKey(args[0])
	value := strings.TrimSpace(args[1])

	spec := config.Lookup(key)
	if spec == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: unknown configuration key %q\n", args[0])
		fmt.Fprintf(cmd.ErrOrStderr(), "Valid keys: %s\n", strings.Join(config.KeyNames(), ", "))
		return
	}

	if spec.Validate != nil {
		if err := spec.Validate(value); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: invalid value for %s: %v\n", spec.Name, err)
			return
		}
	}
	if validate, ok := validators[spec.Name]; ok {
		if err := validate(cmd, value); err != nil {
			return // validate already printed the error
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return
	}

	spec.Set(cfg, value)
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", spec.Name, spec.Get(cfg))
}

// validateBackend checks that the given name is a registered backend.
func validateBackend(cmd *cobra.Command, name string) error {
	normalized := util.NormalizeKey(name)
	known := backends.List()
	for _, b := range known {
		if b == normalized {
			return nil
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: unknown backend %q\n", name)
	fmt.Fprintf(cmd.ErrOrStderr(), "Registered backends: %v\n", known)
	return fmt.Errorf("unknown backend %q", name)
}
