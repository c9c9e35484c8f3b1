package backends

import (
	"context"
	"fmt"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
)

const (
	netFnChassis        = 0x00
	cmdGetChassisStatus = 0x01
	cmdChassisControl   = 0x02
)

// Chassis control codes. Power up (0x01) is never sent.
const (
	chassisPowerDown  = 0x00
	chassisPowerCycle = 0x02
	chassisHardReset  = 0x03
	chassisPulseDiag  = 0x04
	chassisSoftOff    = 0x05
)

// The in-band device can only reach the BMC of a running host, so it
// cannot power a node on.
var ipmiLocalActions = domain.NewActionSet(
	domain.ActionStop,
	domain.ActionReboot,
	domain.ActionHardReset,
	domain.ActionDiagnosticInterrupt,
	domain.ActionSoftStop,
)

// rawIPMI sends raw requests of the form {netfn, cmd, data...} and
// returns the response starting with the completion code.
type rawIPMI interface {
	RawCmd(param []byte) ([]byte, error)
	Close() error
}

// IPMILocalConnector controls the chassis of the host it runs on through
// the kernel IPMI device.
type IPMILocalConnector struct {
	dev rawIPMI
}

func (c *IPMILocalConnector) Name() string { return "ipmi-local" }

func (c *IPMILocalConnector) SupportedActions() domain.ActionSet { return ipmiLocalActions }

func (c *IPMILocalConnector) RestartsInPlace(action domain.Action) bool {
	return action == domain.ActionHardReset
}

func chassisControlCode(action domain.Action) (byte, bool) {
	switch action {
	case domain.ActionStop:
		return chassisPowerDown, true
	case domain.ActionReboot:
		return chassisPowerCycle, true
	case domain.ActionHardReset:
		return chassisHardReset, true
	case domain.ActionDiagnosticInterrupt:
		return chassisPulseDiag, true
	case domain.ActionSoftStop:
		return chassisSoftOff, true
	}
	return 0, false
}

func (c *IPMILocalConnector) Issue(ctx context.Context, action domain.Action) error {
	code, ok := chassisControlCode(action)
	if !ok {
		return fmt.Errorf("ipmi-local: no mapping for action %s", action)
	}
	if _, err := c.send(cmdChassisControl, code); err != nil {
		return fmt.Errorf("chassis control %#02x failed: %w", code, err)
	}
	return nil
}

func (c *IPMILocalConnector) PowerState(ctx context.Context) (domain.Observation, error) {
	resp, err := c.send(cmdGetChassisStatus)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("get chassis status failed: %w", err)
	}
	if len(resp) < 1 {
		return domain.Observation{}, fmt.Errorf("get chassis status: short response")
	}
	if resp[0]&0x01 != 0 {
		return domain.Observation{State: domain.PowerOn}, nil
	}
	return domain.Observation{State: domain.PowerOff}, nil
}

func (c *IPMILocalConnector) Close() error {
	return c.dev.Close()
}

// send issues a chassis request and strips the completion code.
func (c *IPMILocalConnector) send(cmd byte, data ...byte) ([]byte, error) {
	req := append([]byte{netFnChassis, cmd}, data...)
	resp, err := c.dev.RawCmd(req)
	if err != nil {
		return nil, err
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("empty response")
	}
	if resp[0] != 0x00 {
		return nil, fmt.Errorf("command failed with code: %#02x", resp[0])
	}
	return resp[1:], nil
}
