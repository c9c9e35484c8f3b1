//go:build linux

package backends

import (
	"context"
	"fmt"
	"strconv"

	"github.com/u-root/u-root/pkg/ipmi"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
)

// RegisterIPMILocal registers the in-band IPMI backend. The node ID is the
// IPMI device number (/dev/ipmiN), 0 when empty.
func RegisterIPMILocal() {
	Register("ipmi-local", ipmiLocalActions, func(ctx context.Context, node domain.NodeRef, store auth.Store) (domain.Connector, error) {
		devnum := 0
		if node.ID != "" {
			n, err := strconv.Atoi(node.ID)
			if err != nil {
				return nil, fmt.Errorf("invalid IPMI device number %q: %w", node.ID, err)
			}
			devnum = n
		}

		dev, err := ipmi.Open(devnum)
		if err != nil {
			return nil, fmt.Errorf("failed to open IPMI device %d: %w", devnum, err)
		}
		return &IPMILocalConnector{dev: dev}, nil
	})
}
