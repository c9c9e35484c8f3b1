package backends

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
)

var hetznerActions = domain.NewActionSet(
	domain.ActionStart,
	domain.ActionStop,
	domain.ActionForceStop,
	domain.ActionSoftStop,
	domain.ActionReboot,
	domain.ActionHardReset,
	domain.ActionTerminate,
)

// HetznerConnector controls one Hetzner Cloud server.
type HetznerConnector struct {
	client   *hcloud.Client
	serverID int64

	// deleteAction is the action returned by the delete call, used to
	// wait for termination.
	deleteAction *hcloud.Action
}

// NewHetznerConnector creates a HetznerConnector with the given hcloud client
// options. Default options (application name) are applied first; callers
// can override them.
func NewHetznerConnector(serverID int64, opts ...hcloud.ClientOption) *HetznerConnector {
	defaults := []hcloud.ClientOption{
		hcloud.WithApplication("nodectl", "0.1.0"),
	}
	allOpts := append(defaults, opts...)
	return &HetznerConnector{
		client:   hcloud.NewClient(allOpts...),
		serverID: serverID,
	}
}

// RegisterHetzner registers the Hetzner backend factory with the global
// registry. The API token comes from the node or the keychain.
func RegisterHetzner() {
	Register("hetzner", hetznerActions, func(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error) {
		id, err := strconv.ParseInt(node.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid server ID %q: %w", node.ID, err)
		}

		creds, err := resolveCredentials("hetzner", node, store)
		if err != nil {
			return nil, err
		}
		if creds.Secret == "" {
			return nil, fmt.Errorf("hetzner auth: %w", auth.ErrTokenNotFound)
		}

		opts := []hcloud.ClientOption{hcloud.WithToken(creds.Secret)}
		if node.Address != "" {
			opts = append(opts, hcloud.WithEndpoint(node.Address))
		}
		return NewHetznerConnector(id, opts...), nil
	})
}

func (h *HetznerConnector) Name() string { return "hetzner" }

func (h *HetznerConnector) SupportedActions() domain.ActionSet { return hetznerActions }

// RestartsInPlace reports true for reboot and reset: the server status
// stays "running" across both.
func (h *HetznerConnector) RestartsInPlace(action domain.Action) bool {
	return action.IsRestart()
}

func (h *HetznerConnector) Issue(ctx context.Context, action domain.Action) error {
	server := &hcloud.Server{ID: h.serverID}

	var err error
	switch action {
	case domain.ActionStart:
		_, _, err = h.client.Server.Poweron(ctx, server)
	case domain.ActionStop, domain.ActionSoftStop:
		_, _, err = h.client.Server.Shutdown(ctx, server)
	case domain.ActionForceStop:
		_, _, err = h.client.Server.Poweroff(ctx, server)
	case domain.ActionReboot:
		_, _, err = h.client.Server.Reboot(ctx, server)
	case domain.ActionHardReset:
		_, _, err = h.client.Server.Reset(ctx, server)
	case domain.ActionTerminate:
		var result *hcloud.ServerDeleteResult
		result, _, err = h.client.Server.DeleteWithResult(ctx, server)
		if err == nil && result != nil {
			h.deleteAction = result.Action
		}
	default:
		return fmt.Errorf("hetzner: no mapping for action %s", action)
	}
	if err != nil {
		return classifyHetznerError(err, fmt.Sprintf("failed to %s server", action))
	}
	return nil
}

// PowerState reads the server status. Only "running" counts as on; a
// server the API no longer returns is gone.
func (h *HetznerConnector) PowerState(ctx context.Context) (domain.Observation, error) {
	server, _, err := h.client.Server.GetByID(ctx, h.serverID)
	if err != nil {
		return domain.Observation{}, classifyHetznerError(err, "failed to get server")
	}
	if server == nil {
		return domain.Observation{State: domain.PowerGone, Raw: "deleted"}, nil
	}
	if server.Status == hcloud.ServerStatusRunning {
		return domain.Observation{State: domain.PowerOn, Raw: string(server.Status)}, nil
	}
	return domain.Observation{State: domain.PowerOff, Raw: string(server.Status)}, nil
}

// WaitUntilTerminal waits for the delete action to finish.
func (h *HetznerConnector) WaitUntilTerminal(ctx context.Context) error {
	if h.deleteAction == nil {
		return errors.New("hetzner: no delete action to wait for")
	}
	if err := h.client.Action.WaitFor(ctx, h.deleteAction); err != nil {
		return classifyHetznerError(err, "failed waiting for server deletion")
	}
	return nil
}

func classifyHetznerError(err error, msg string) error {
	if hcloud.IsError(err, hcloud.ErrorCodeNotFound) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	if hcloud.IsError(err, hcloud.ErrorCodeUnauthorized) {
		return fmt.Errorf("%s: %w", msg, domain.ErrUnauthorized)
	}
	if hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded) {
		return fmt.Errorf("%s: %w", msg, domain.ErrRateLimited)
	}
	if hcloud.IsError(err, hcloud.ErrorCodeConflict) || hcloud.IsError(err, hcloud.ErrorCodeLocked) {
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
