package cmd

import (
	"fmt"
	"io"
	"os"

	"nathanbeddoewebdev/nodectl/cmd/commands/auth"
	cfgcmd "nathanbeddoewebdev/nodectl/cmd/commands/config"
	"nathanbeddoewebdev/nodectl/cmd/commands/history"
	"nathanbeddoewebdev/nodectl/cmd/commands/power"
	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/logging"
	"nathanbeddoewebdev/nodectl/internal/node/backends"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// logCloser releases the log file opened by the root pre-run hook.
var logCloser io.Closer = io.NopCloser(nil)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "nodectl",
		Short: "A CLI tool for controlling node power across backends",
		Long: `nodectl issues power-lifecycle commands (start, stop, reboot, reset,
terminate, ...) to compute nodes through a uniform interface, whether the
node is a cloud instance, a server behind a BMC, or an outlet on a PDU.
With --wait it blocks until the node reaches the intended power state.

Supported backends: aws, hetzner, ipmi, ipmi-local, pdu.

Quick start:
  nodectl auth login hetzner                            # Store your API token
  nodectl config set default-backend hetzner            # Pick a default backend
  nodectl power status --node 4711                      # Show power state
  nodectl power reboot --node 4711 --wait               # Reboot and wait
  nodectl power batch -f nodes.yaml --action stop       # Act on an inventory
  nodectl history list                                  # Review past actions`,
		PersistentPreRunE: setupLogging,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default from config, warn)")
	cmd.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stderr")

	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(history.NewCommand())
	cmd.AddCommand(power.NewCommand())

	return cmd
}

// setupLogging configures the standard logger from flags, falling back to
// the persisted config.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.Level()
	}
	file, _ := cmd.Flags().GetString("log-file")
	if file == "" {
		file = cfg.LogFile
	}

	closer, err := logging.Setup(logrus.StandardLogger(), logging.Options{
		Level:  level,
		File:   file,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	backends.RegisterAll()

	var root = rootCmd()
	err := root.Execute()
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}
