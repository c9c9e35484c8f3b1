package power

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/tui"

	"github.com/spf13/cobra"
)

// confirmTerminate prompts before a terminate. Replaced in tests.
var confirmTerminate = tui.ConfirmTerminate

var actionHelp = map[domain.Action]string{
	domain.ActionStart:               "Power on a node",
	domain.ActionStop:                "Gracefully power off a node",
	domain.ActionForceStop:           "Power off a node immediately",
	domain.ActionReboot:              "Reboot a running node",
	domain.ActionHardReset:           "Reset a node without a graceful shutdown",
	domain.ActionDiagnosticInterrupt: "Send a diagnostic interrupt (NMI) to a node",
	domain.ActionSoftStop:            "Ask the operating system to shut down (ACPI soft off)",
	domain.ActionTerminate:           "Destroy a node",
}

// commandName is the CLI verb for action.
func commandName(action domain.Action) string {
	if action == domain.ActionDiagnosticInterrupt {
		return "diag-interrupt"
	}
	return strings.ReplaceAll(action.String(), "_", "-")
}

// ActionCommand returns the command that issues action to one node.
func ActionCommand(action domain.Action) *cobra.Command {
	name := commandName(action)
	long := actionHelp[action] + `.

Without --wait the command succeeds once the backend accepts the request.
With --wait it blocks until the node reaches the action's final power
state or --wait-timeout passes.`
	if action == domain.ActionTerminate {
		long = actionHelp[action] + `. This cannot be undone.

Without --wait the command succeeds once the backend accepts the request.
With --wait it blocks until the node is gone; --wait-timeout does not
apply. You are asked to confirm unless --yes is given.`
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: actionHelp[action],
		Long: long + fmt.Sprintf(`

Examples:
  nodectl power %[1]s --backend ipmi --address 10.0.0.5 --user admin --ask-password
  nodectl power %[1]s --backend aws --node i-0abc123 --region eu-west-1 --wait
  nodectl power %[1]s --backend hetzner --node 4711 --wait -o json`, name),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, action)
		},
		SilenceUsage: true,
	}
	if action == domain.ActionDiagnosticInterrupt {
		cmd.Aliases = []string{"diagnostic-interrupt"}
	}

	addNodeFlags(cmd)
	cmd.Flags().Bool("wait", false, "Wait for the node to reach the final power state")
	cmd.Flags().Int("wait-timeout", 0, "Seconds to wait with --wait (default from config, 30)")
	cmd.Flags().StringP("output", "o", outputText, "Output format: text or json")
	if action == domain.ActionTerminate {
		cmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	}

	return cmd
}

func runAction(cmd *cobra.Command, action domain.Action) error {
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	node, err := nodeFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	timeout, err := waitTimeout(cmd, cfg)
	if err != nil {
		return err
	}
	wait, _ := cmd.Flags().GetBool("wait")

	if action == domain.ActionTerminate {
		if err := confirm(cmd, node); err != nil {
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Termination cancelled.")
				return nil
			}
			return err
		}
	}

	req := domain.ActionRequest{
		Node:        node,
		Action:      action,
		Wait:        wait,
		WaitTimeout: timeout,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	r := newRunner(cmd, cfg)
	defer r.Close()

	result := r.executeWithProgress(ctx, cmd, req, output == outputText)
	if err := printResult(cmd.OutOrStdout(), req, result, output); err != nil {
		return err
	}
	return resultError(result)
}

// waitTimeout returns --wait-timeout, or the configured default when the
// flag is not set.
func waitTimeout(cmd *cobra.Command, cfg *config.Config) (time.Duration, error) {
	if !cmd.Flags().Changed("wait-timeout") {
		return cfg.WaitTimeoutDuration(), nil
	}
	seconds, _ := cmd.Flags().GetInt("wait-timeout")
	if seconds <= 0 {
		return 0, fmt.Errorf("--wait-timeout must be a positive number of seconds")
	}
	return time.Duration(seconds) * time.Second, nil
}

// confirm asks before a terminate unless --yes was given or there is no
// terminal to ask on.
func confirm(cmd *cobra.Command, node domain.NodeRef) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes || !stdinIsTerminal() {
		return nil
	}
	return confirmTerminate(node)
}
