package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Title is the main header text style.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(White)

	// Label is used for field names in detail views.
	Label = lipgloss.NewStyle().
		Foreground(Gray).
		Bold(true)

	// Value is used for field values in detail views.
	Value = lipgloss.NewStyle().
		Foreground(White)

	// MutedText is for hints and less important info.
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// AccentText highlights node and backend names.
	AccentText = lipgloss.NewStyle().
			Foreground(Blue)

	// ErrorText is for error messages.
	ErrorText = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	// SuccessText is for success messages.
	SuccessText = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	// WarningText is for warnings such as irreversible actions.
	WarningText = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// StateStyle returns the style for an observed power state or raw
// backend status.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "on", "running":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "pending", "starting", "initializing", "rebooting":
		return lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	case "stopping", "shutting-down", "deleting":
		return lipgloss.NewStyle().Foreground(Yellow)
	case "off", "stopped":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// StateIndicator returns a small dot plus the state text in its color.
func StateIndicator(state string) string {
	style := StateStyle(state)
	return style.Render("●") + " " + style.Render(state)
}
