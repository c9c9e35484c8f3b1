package power

import (
	"nathanbeddoewebdev/nodectl/internal/node/domain"

	"github.com/spf13/cobra"
)

// NewCommand returns the "power" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Control node power",
		Long: `Issue power-lifecycle commands to nodes through a control backend and
optionally wait until the node reaches the intended power state.

Backends:
  aws      EC2 instances (--node i-..., --region)
  hetzner  Hetzner Cloud servers (--node <server id>)
  ipmi     BMCs over the network via ipmitool (--address, --user, --password)
  ipmi-local  the local BMC through the kernel IPMI driver (Linux only)
  pdu      switched PDU outlets over SNMP (--address, --node <outlet>)

Run "nodectl power backends" to see which actions each backend supports.`,
	}

	for _, action := range domain.AllActions {
		cmd.AddCommand(ActionCommand(action))
	}
	cmd.AddCommand(StatusCommand())
	cmd.AddCommand(BackendsCommand())
	cmd.AddCommand(BatchCommand())

	return cmd
}
