package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/nodectl/internal/auditlog"

	"github.com/spf13/cobra"
)

func PruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries older than an age",
		Long: `Delete history entries older than an age.

Ages accept Go durations (72h) plus day and week suffixes (30d, 2w).

Examples:
  nodectl history prune --older-than 30d
  nodectl history prune --older-than 72h`,
		RunE:         runPrune,
		SilenceUsage: true,
	}

	cmd.Flags().String("older-than", "", "Remove entries older than this age (e.g. 30d, 2w, 72h)")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("older-than")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("--older-than is required")
	}

	age, err := parseAge(raw)
	if err != nil {
		return err
	}

	repo, err := auditlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	removed, err := repo.Prune(age)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history entr(y/ies).\n", removed)
	return nil
}

var ageUnits = map[string]time.Duration{
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

func parseAge(input string) (time.Duration, error) {
	for suffix, unit := range ageUnits {
		num, ok := strings.CutSuffix(input, suffix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("invalid age %q", input)
		}
		if n < 0 {
			return 0, fmt.Errorf("age must be positive")
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q", input)
	}
	if d < 0 {
		return 0, fmt.Errorf("age must be positive")
	}
	return d, nil
}
