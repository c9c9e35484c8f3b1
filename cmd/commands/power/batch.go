package power

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/inventory"
	"nathanbeddoewebdev/nodectl/internal/node/domain"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// batchResult is the JSON shape of one node in "power batch".
type batchResult struct {
	Name    string              `json:"name"`
	Backend string              `json:"backend"`
	Result  domain.ActionResult `json:"result"`
}

func BatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Issue one action to every node in an inventory",
		Long: `Issue one power action to every node listed in a YAML inventory.

Each node is handled independently: a failure on one node does not stop
the others. The command fails if any node fails.

Inventory format:
  defaults:
    backend: ipmi
    credentials:
      user: admin
  nodes:
    - name: cn[01-16]
      address: "{name}-bmc.lab"

Examples:
  nodectl power batch --file nodes.yaml --action reboot --wait
  nodectl power batch --file nodes.yaml --action stop --concurrency 8 -o json`,
		Args:         cobra.NoArgs,
		RunE:         runBatch,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("file", "f", "", "Inventory file (required)")
	cmd.Flags().String("action", "", "Action to issue, e.g. start, stop, reboot (required)")
	cmd.Flags().Bool("wait", false, "Wait for every node to reach the final power state")
	cmd.Flags().Int("wait-timeout", 0, "Seconds to wait per node with --wait (default from config, 30)")
	cmd.Flags().Int("concurrency", 4, "Number of nodes handled at once")
	cmd.Flags().StringP("output", "o", outputText, "Output format: text or json")
	cmd.Flags().Bool("yes", false, "Required to terminate nodes in batch")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("action")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	actionName, _ := cmd.Flags().GetString("action")
	action, err := domain.ParseAction(actionName)
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		return fmt.Errorf("--concurrency must be greater than 0")
	}

	path, _ := cmd.Flags().GetString("file")
	nodes, err := inventory.Load(path)
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); action == domain.ActionTerminate && !yes {
		return fmt.Errorf("terminating %d node(s) requires --yes", len(nodes))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	timeout, err := waitTimeout(cmd, cfg)
	if err != nil {
		return err
	}
	wait, _ := cmd.Flags().GetBool("wait")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	r := newRunner(cmd, cfg)
	defer r.Close()

	results := make([]batchResult, len(nodes))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, node := range nodes {
		g.Go(func() error {
			req := domain.ActionRequest{
				Node:        node.Ref,
				Action:      action,
				Wait:        wait,
				WaitTimeout: timeout,
			}
			results[i] = batchResult{
				Name:    node.Name,
				Backend: node.Ref.Backend,
				Result:  r.execute(ctx, req),
			}
			return nil
		})
	}
	g.Wait()

	failed := lo.CountBy(results, func(res batchResult) bool { return !res.Result.OK() })

	if output == outputJSON {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		printBatchTable(cmd, action, results)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d succeeded, %d failed (run %s)\n", len(results)-failed, failed, r.runID)
	}

	if failed > 0 {
		return fmt.Errorf("%s failed on %d of %d node(s)", action, failed, len(results))
	}
	return nil
}

func printBatchTable(cmd *cobra.Command, action domain.Action, results []batchResult) {
	table := newTable(cmd.OutOrStdout(), "Node", "Backend", "Action", "Result", "Duration", "Detail")
	for _, res := range results {
		outcome, detail := "ok", "-"
		if f := res.Result.Failure; f != nil {
			outcome = string(f.Kind)
			detail = strings.TrimSpace(f.Reason)
		} else if res.Result.Success.FinalPowerStateOn {
			detail = "power on"
		}
		table.Append([]string{
			res.Name,
			res.Backend,
			action.String(),
			outcome,
			formatElapsed(res.Result.Elapsed()),
			detail,
		})
	}
	table.Render()
}
