package power

import (
	"fmt"
	"os"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/auditlog"
	"nathanbeddoewebdev/nodectl/internal/config"
	"nathanbeddoewebdev/nodectl/internal/node/domain"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword prompts for a password without echo. Replaced in tests.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// addNodeFlags registers the flags that identify a single node.
func addNodeFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "Control backend (overrides default-backend)")
	cmd.Flags().String("node", "", "Node ID: instance ID, server ID, or PDU outlet")
	cmd.Flags().String("address", "", "Management address: BMC or PDU host, optionally [scheme://]host[:port]")
	cmd.Flags().String("region", "", "Cloud region")
	cmd.Flags().String("interface", "", "Protocol variant, e.g. lanplus for IPMI or v2c for SNMP")
	cmd.Flags().String("user", "", "BMC user")
	cmd.Flags().String("password", "", "BMC password, API secret, or SNMP community")
	cmd.Flags().Bool("ask-password", false, "Prompt for the password instead of passing it as a flag")
	cmd.Flags().String("access-key-id", "", "API access key ID (aws)")
	auditlog.MarkSecret(cmd.Flags(), "password", "access-key-id")
}

// nodeFromFlags builds the NodeRef named by the node flags, falling back
// to the configured default backend.
func nodeFromFlags(cmd *cobra.Command, cfg *config.Config) (domain.NodeRef, error) {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}

	node := domain.NodeRef{
		Backend:   flag("backend"),
		ID:        flag("node"),
		Address:   flag("address"),
		Region:    flag("region"),
		Interface: flag("interface"),
		Credentials: domain.Credentials{
			User:   flag("user"),
			KeyID:  flag("access-key-id"),
			Secret: flag("password"),
		},
	}

	if node.Backend == "" {
		node.Backend = cfg.DefaultBackend
	}
	if node.Backend == "" {
		return node, fmt.Errorf("no backend specified: use --backend flag or set a default with 'nodectl config set default-backend <name>'")
	}
	if ask, _ := cmd.Flags().GetBool("ask-password"); ask {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		secret, err := readPassword()
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return node, fmt.Errorf("failed to read password: %w", err)
		}
		node.Credentials.Secret = strings.TrimSpace(string(secret))
	}

	return node, nil
}
