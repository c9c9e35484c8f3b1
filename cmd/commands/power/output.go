package power

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/tui/styles"

	"github.com/olekukonko/tablewriter"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func validateOutput(output string) error {
	switch output {
	case outputText, outputJSON:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (use text or json)", output)
}

// printResult writes a result in the requested format. Text output only
// covers success; the caller reports failures as the command's error.
func printResult(w io.Writer, req domain.ActionRequest, result domain.ActionResult, output string) error {
	if output == outputJSON {
		return printJSON(w, result)
	}
	if result.Success == nil {
		return nil
	}

	target := fmt.Sprintf("%s (%s)", styles.AccentText.Render(req.Node.Label()), req.Node.Backend)
	elapsed := formatElapsed(result.Elapsed())

	if !req.Wait {
		fmt.Fprintf(w, "%s Issued %s to %s in %s.\n",
			styles.SuccessText.Render("✓"), req.Action, target, elapsed)
		return nil
	}

	fmt.Fprintf(w, "%s %s completed on %s in %s. Power: %s\n",
		styles.SuccessText.Render("✓"), req.Action, target, elapsed,
		styles.StateIndicator(powerWord(result.Success.FinalPowerStateOn)))
	return nil
}

// resultError turns a failed result into the command's error.
func resultError(result domain.ActionResult) error {
	if result.Failure == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", result.Failure.Kind, result.Err())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func powerWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// newTable returns a borderless, left-aligned table writing to w.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
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
	return table
}
