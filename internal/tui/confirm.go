// Package tui holds nodectl's interactive prompts.
package tui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/tui/styles"
)

// ErrAborted is returned when the user declines or cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// ConfirmTerminate asks the user to confirm terminating node. Declining
// returns ErrAborted.
func ConfirmTerminate(node domain.NodeRef) error {
	accessible := os.Getenv("ACCESSIBLE") != ""
	confirm := false

	summary := huh.NewNote().
		Title(styles.WarningText.Render("Terminate node")).
		Description(fmt.Sprintf("%s %s\n%s %s\n\nThe node will be destroyed and cannot be recovered.",
			styles.Label.Render("Backend:"), styles.Value.Render(node.Backend),
			styles.Label.Render("Node:"), styles.Value.Render(node.Label()),
		))

	confirmField := huh.NewConfirm().
		Title("Terminate this node? This action cannot be undone.").
		Affirmative("Yes, terminate").
		Negative("Cancel").
		Value(&confirm)

	if err := runForm(accessible, huh.NewGroup(summary, confirmField)); err != nil {
		return err
	}
	if !confirm {
		return ErrAborted
	}
	return nil
}

// runForm creates and runs a huh.Form, translating ErrUserAborted to ErrAborted.
func runForm(accessible bool, groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithAccessible(accessible).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}
