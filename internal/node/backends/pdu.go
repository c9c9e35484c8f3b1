package backends

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gosnmp/gosnmp"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
	"nathanbeddoewebdev/nodectl/internal/util"
)

// outletCtlOID is the APC PowerNet sPDUOutletCtl column. The outlet
// number is appended as the row index.
const outletCtlOID = ".1.3.6.1.4.1.318.1.1.4.4.2.1.3"

// sPDUOutletCtl values. Reads return on or off; writes also accept reboot.
const (
	outletOn     = 1
	outletOff    = 2
	outletReboot = 3
)

// PDUTimeout bounds each SNMP request.
var PDUTimeout = 5 * time.Second

var pduActions = domain.NewActionSet(
	domain.ActionStart,
	domain.ActionStop,
	domain.ActionReboot,
)

// snmpClient is the subset of gosnmp.GoSNMP the connector uses.
type snmpClient interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Set(pdus []gosnmp.SnmpPDU) (*gosnmp.SnmpPacket, error)
}

// PDUConnector switches one outlet of an SNMP-managed PDU. The node's
// power state is the outlet's state.
type PDUConnector struct {
	client snmpClient
	oid    string
	close  func() error
}

// RegisterPDU registers the switched-PDU backend. The node ID is the
// outlet number and the secret is the SNMP write community ("private"
// when unset). Interface selects the SNMP version: "v1" or "v2c".
func RegisterPDU() {
	Register("pdu", pduActions, func(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error) {
		outlet, err := strconv.Atoi(node.ID)
		if err != nil || outlet < 1 {
			return nil, fmt.Errorf("invalid PDU outlet %q", node.ID)
		}
		host, port, err := util.ParseBMCAddress(node.Address, 161)
		if err != nil {
			return nil, fmt.Errorf("pdu: %w", err)
		}
		creds, err := resolveCredentials("pdu", node, store)
		if err != nil {
			return nil, err
		}
		community := creds.Secret
		if community == "" {
			community = "private"
		}

		version := gosnmp.Version2c
		switch util.NormalizeKey(node.Interface) {
		case "", "v2c", "2c":
		case "v1", "1":
			version = gosnmp.Version1
		default:
			return nil, fmt.Errorf("pdu: unsupported SNMP version %q", node.Interface)
		}

		client := &gosnmp.GoSNMP{
			Target:    host,
			Port:      uint16(port),
			Community: community,
			Version:   version,
			Timeout:   PDUTimeout,
			Context:   ctx,
			MaxOids:   gosnmp.MaxOids,
		}
		if err := client.Connect(); err != nil {
			return nil, fmt.Errorf("pdu: connect to %s: %w", host, err)
		}

		return &PDUConnector{
			client: client,
			oid:    fmt.Sprintf("%s.%d", outletCtlOID, outlet),
			close:  client.Conn.Close,
		}, nil
	})
}

func (c *PDUConnector) Name() string { return "pdu" }

func (c *PDUConnector) SupportedActions() domain.ActionSet { return pduActions }

func (c *PDUConnector) Issue(ctx context.Context, action domain.Action) error {
	var value int
	switch action {
	case domain.ActionStart:
		value = outletOn
	case domain.ActionStop:
		value = outletOff
	case domain.ActionReboot:
		value = outletReboot
	default:
		return fmt.Errorf("pdu: no mapping for action %s", action)
	}

	pkt, err := c.client.Set([]gosnmp.SnmpPDU{{
		Name:  c.oid,
		Type:  gosnmp.Integer,
		Value: value,
	}})
	if err != nil {
		return fmt.Errorf("failed to set outlet %s: %w", c.oid, err)
	}
	if pkt.Error != gosnmp.NoError {
		return fmt.Errorf("failed to set outlet %s: %w", c.oid, snmpError(pkt.Error))
	}
	return nil
}

func (c *PDUConnector) PowerState(ctx context.Context) (domain.Observation, error) {
	pkt, err := c.client.Get([]string{c.oid})
	if err != nil {
		return domain.Observation{}, fmt.Errorf("failed to read outlet %s: %w", c.oid, err)
	}
	if pkt.Error != gosnmp.NoError {
		return domain.Observation{}, fmt.Errorf("failed to read outlet %s: %w", c.oid, snmpError(pkt.Error))
	}
	if len(pkt.Variables) != 1 {
		return domain.Observation{}, fmt.Errorf("failed to read outlet %s: got %d variables", c.oid, len(pkt.Variables))
	}

	v := pkt.Variables[0]
	switch v.Type {
	case gosnmp.NoSuchInstance, gosnmp.NoSuchObject:
		return domain.Observation{}, fmt.Errorf("outlet %s: %w", c.oid, domain.ErrNotFound)
	}
	switch gosnmp.ToBigInt(v.Value).Int64() {
	case outletOn:
		return domain.Observation{State: domain.PowerOn}, nil
	case outletOff:
		return domain.Observation{State: domain.PowerOff}, nil
	default:
		return domain.Observation{}, fmt.Errorf("outlet %s: unexpected state %v", c.oid, v.Value)
	}
}

func (c *PDUConnector) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func snmpError(status gosnmp.SNMPError) error {
	switch status {
	case gosnmp.AuthorizationError, gosnmp.NoAccess:
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, status)
	case gosnmp.NoSuchName:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, status)
	}
	return fmt.Errorf("snmp error %v", status)
}
