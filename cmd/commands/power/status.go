package power

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/node/backends"
	"nathanbeddoewebdev/nodectl/internal/tui/styles"

	"github.com/spf13/cobra"
)

// nodeStatus is the JSON shape of "power status".
type nodeStatus struct {
	Backend    string `json:"backend"`
	Node       string `json:"node"`
	PowerState string `json:"power_state"`
	Raw        string `json:"raw,omitempty"`
	On         bool   `json:"on"`
}

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a node's power state",
		Long: `Query a node's current power state through its backend.

Examples:
  nodectl power status --backend pdu --address pdu1.lab --node 4
  nodectl power status --backend aws --node i-0abc123 -o json`,
		Args:         cobra.NoArgs,
		RunE:         runStatus,
		SilenceUsage: true,
	}

	addNodeFlags(cmd)
	cmd.Flags().StringP("output", "o", outputText, "Output format: text or json")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	conn, err := backends.NewOpener(newStore()).Open(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to connect to %s node %s: %w", node.Backend, node.Label(), err)
	}
	if closer, ok := conn.(io.Closer); ok {
		defer closer.Close()
	}

	obs, err := conn.PowerState(ctx)
	if err != nil {
		return fmt.Errorf("failed to query power state: %w", err)
	}

	if output == outputJSON {
		return printJSON(cmd.OutOrStdout(), nodeStatus{
			Backend:    conn.Name(),
			Node:       node.Label(),
			PowerState: obs.State.String(),
			Raw:        obs.Raw,
			On:         obs.On(),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n",
		styles.StateIndicator(obs.String()),
		styles.AccentText.Render(node.Label()),
		conn.Name())
	return nil
}
