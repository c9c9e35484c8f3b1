//go:build !linux

package backends

// RegisterIPMILocal is a no-op where there is no kernel IPMI device.
func RegisterIPMILocal() {}
