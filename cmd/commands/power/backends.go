package power

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/node/backends"
	"nathanbeddoewebdev/nodectl/internal/node/domain"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// backendInfo is the JSON shape of "power backends".
type backendInfo struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

func BackendsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List control backends and the actions they support",
		Long: `List the registered control backends and the power actions each one
supports. Actions a backend does not list fail with UnsupportedActionError
without contacting the node.

Example:
  nodectl power backends`,
		Args:         cobra.NoArgs,
		RunE:         runBackends,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format: text or json")

	return cmd
}

func runBackends(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	var infos []backendInfo
	for _, name := range backends.List() {
		set, err := backends.Supported(name)
		if err != nil {
			return err
		}
		infos = append(infos, backendInfo{
			Name: name,
			Actions: lo.Map(domain.SortedActions(set), func(a domain.Action, _ int) string {
				return commandName(a)
			}),
		})
	}

	if output == outputJSON {
		return printJSON(cmd.OutOrStdout(), infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No backends registered.")
		return nil
	}

	table := newTable(cmd.OutOrStdout(), "Backend", "Actions")
	for _, info := range infos {
		table.Append([]string{info.Name, strings.Join(info.Actions, ", ")})
	}
	table.Render()
	return nil
}
