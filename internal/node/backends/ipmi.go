package backends

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
	"nathanbeddoewebdev/nodectl/internal/util"
)

// IPMIToolPath is the ipmitool binary the IPMI backend runs.
var IPMIToolPath = "ipmitool"

// ErrMissingBMCCredentials is returned when no BMC user or password is
// available for an IPMI node.
var ErrMissingBMCCredentials = errors.New("Missing IPMI BMC user and/or password")

var ipmiActions = domain.NewActionSet(
	domain.ActionStart,
	domain.ActionStop,
	domain.ActionReboot,
	domain.ActionHardReset,
	domain.ActionDiagnosticInterrupt,
	domain.ActionSoftStop,
)

// commandRunner runs an external command and returns its stdout.
type commandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w, output: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// IPMIConnector controls a node's chassis power through its BMC over
// IPMI-over-LAN, by running ipmitool.
type IPMIConnector struct {
	runner   commandRunner
	host     string
	port     int
	iface    string
	user     string
	password string
}

// NewIPMIConnector builds a connector for the BMC at address
// ([scheme://]host[:port], port 623 by default). iface is the ipmitool
// interface, "lanplus" when empty.
func NewIPMIConnector(address, iface, user, password string) (*IPMIConnector, error) {
	if user == "" || password == "" {
		return nil, ErrMissingBMCCredentials
	}
	host, port, err := util.ParseBMCAddress(address, util.DefaultBMCPort)
	if err != nil {
		return nil, fmt.Errorf("ipmi: %w", err)
	}
	if iface == "" {
		iface = "lanplus"
	}
	return &IPMIConnector{
		runner:   execRunner{},
		host:     host,
		port:     port,
		iface:    iface,
		user:     user,
		password: password,
	}, nil
}

// RegisterIPMI registers the IPMI backend factory with the global registry.
// The keychain entry, if any, holds "user:password".
func RegisterIPMI() {
	Register("ipmi", ipmiActions, func(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error) {
		creds, err := resolveCredentials("ipmi", node, store)
		if err != nil {
			return nil, err
		}
		return NewIPMIConnector(node.Address, node.Interface, creds.User, creds.Secret)
	})
}

func (c *IPMIConnector) Name() string { return "ipmi" }

func (c *IPMIConnector) SupportedActions() domain.ActionSet { return ipmiActions }

// RestartsInPlace reports true for hard reset, which resets the board
// without removing power. A reboot is a power cycle and passes through off.
func (c *IPMIConnector) RestartsInPlace(action domain.Action) bool {
	return action == domain.ActionHardReset
}

// chassisPowerArg maps an action to its "chassis power" subcommand. The
// chassis control codes are 0 down, 1 up, 2 cycle, 3 hard reset, 4 pulse
// diagnostic interrupt, 5 soft shutdown.
func chassisPowerArg(action domain.Action) (string, bool) {
	switch action {
	case domain.ActionStop:
		return "off", true
	case domain.ActionStart:
		return "on", true
	case domain.ActionReboot:
		return "cycle", true
	case domain.ActionHardReset:
		return "reset", true
	case domain.ActionDiagnosticInterrupt:
		return "diag", true
	case domain.ActionSoftStop:
		return "soft", true
	}
	return "", false
}

func (c *IPMIConnector) Issue(ctx context.Context, action domain.Action) error {
	arg, ok := chassisPowerArg(action)
	if !ok {
		return fmt.Errorf("ipmi: no mapping for action %s", action)
	}
	if _, err := c.run(ctx, "chassis", "power", arg); err != nil {
		return fmt.Errorf("chassis power %s failed for %s: %w", arg, c.host, err)
	}
	return nil
}

// PowerState runs "chassis power status", which prints
// "Chassis Power is on" or "Chassis Power is off".
func (c *IPMIConnector) PowerState(ctx context.Context) (domain.Observation, error) {
	out, err := c.run(ctx, "chassis", "power", "status")
	if err != nil {
		return domain.Observation{}, fmt.Errorf("chassis power status failed for %s: %w", c.host, err)
	}
	return parseChassisPower(string(out))
}

func parseChassisPower(output string) (domain.Observation, error) {
	status := strings.ToLower(strings.TrimSpace(output))
	switch {
	case strings.HasSuffix(status, " on"):
		return domain.Observation{State: domain.PowerOn}, nil
	case strings.HasSuffix(status, " off"):
		return domain.Observation{State: domain.PowerOff}, nil
	}
	return domain.Observation{}, fmt.Errorf("unexpected ipmitool output: %q", strings.TrimSpace(output))
}

// run invokes ipmitool. The password travels in IPMI_PASSWORD (-E) so it
// never shows up in the process list.
func (c *IPMIConnector) run(ctx context.Context, args ...string) ([]byte, error) {
	base := []string{
		"-I", c.iface,
		"-H", c.host,
		"-p", strconv.Itoa(c.port),
		"-U", c.user,
		"-E",
	}
	return c.runner.Run(ctx, []string{"IPMI_PASSWORD=" + c.password}, IPMIToolPath, append(base, args...)...)
}
