package domain

import "time"

// DefaultWaitTimeout is how long a waiting request polls for the intended
// state when the caller does not say otherwise.
const DefaultWaitTimeout = 30 * time.Second

// Credentials holds whatever secrets a backend needs to open a session.
// Backends read only the fields that apply to them.
type Credentials struct {
	// User is the BMC user name for out-of-band backends.
	User string `json:"user,omitempty" yaml:"user,omitempty"`

	// KeyID is the public half of an API key pair (e.g. an AWS access key ID).
	KeyID string `json:"key_id,omitempty" yaml:"key_id,omitempty"`

	// Secret is a password, API token, secret key, or SNMP community.
	Secret string `json:"-" yaml:"secret,omitempty"`
}

// NodeRef identifies a node and how to reach it.
type NodeRef struct {
	// Backend is the registered backend name, e.g. "aws" or "ipmi".
	Backend string `json:"backend" yaml:"backend"`

	// ID is the backend-specific node identifier: an instance ID, a
	// server ID, or a PDU outlet number. IPMI nodes are addressed by
	// Address alone.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Address is the management endpoint (BMC or PDU host, optionally with
	// scheme and port).
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Region is the cloud region the node lives in.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Interface selects a protocol variant, e.g. "lanplus" for IPMI or
	// "v2c" for SNMP.
	Interface string `json:"interface,omitempty" yaml:"interface,omitempty"`

	Credentials Credentials `json:"credentials" yaml:"credentials,omitempty"`
}

// Label returns a short human-readable identifier for logs and output.
func (n NodeRef) Label() string {
	switch {
	case n.ID != "" && n.Address != "":
		return n.Address + "/" + n.ID
	case n.ID != "":
		return n.ID
	default:
		return n.Address
	}
}

// ActionRequest is a single power action against a single node. It is
// passed by value and never modified once accepted for execution.
type ActionRequest struct {
	Node   NodeRef `json:"node"`
	Action Action  `json:"action"`

	// Wait requests that execution block until the intended final state
	// is observed.
	Wait bool `json:"wait"`

	// WaitTimeout bounds the wait. Zero means DefaultWaitTimeout.
	// It is ignored for ActionTerminate.
	WaitTimeout time.Duration `json:"wait_timeout"`
}

// EffectiveWaitTimeout returns WaitTimeout, or DefaultWaitTimeout when unset.
func (r ActionRequest) EffectiveWaitTimeout() time.Duration {
	if r.WaitTimeout <= 0 {
		return DefaultWaitTimeout
	}
	return r.WaitTimeout
}
