package history

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"nathanbeddoewebdev/nodectl/internal/auditlog"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent power actions",
		Long: `List recent power actions stored locally.

Examples:
  nodectl history list
  nodectl history list --limit 50
  nodectl history list --node 10.0.0.5
  nodectl history list --run 6f1c0f5e-...
  nodectl history list -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("node", "", "Filter by node")
	cmd.Flags().String("run", "", "Show every entry of one invocation (e.g. a batch)")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	node, _ := cmd.Flags().GetString("node")
	run, _ := cmd.Flags().GetString("run")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	repo, err := auditlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []auditlog.Entry
	switch {
	case run != "":
		entries, err = repo.ListByRun(run)
	case node != "":
		entries, err = repo.ListByNode(node, limit)
	default:
		entries, err = repo.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history entries found.")
		return nil
	}

	printTable(cmd.OutOrStdout(), entries)
	return nil
}

func printTable(w io.Writer, entries []auditlog.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Backend", "Node", "Action", "Outcome", "Duration", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, entry := range entries {
		detail := entry.Detail
		if detail == "" {
			detail = "-"
		}
		action := entry.Action
		if entry.Wait {
			action += " (wait)"
		}
		table.Append([]string{
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			entry.Backend,
			entry.Node,
			action,
			entry.Outcome,
			formatDuration(entry.DurationMs),
			detail,
		})
	}
	table.Render()
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
