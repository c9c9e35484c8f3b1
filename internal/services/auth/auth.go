// Package auth stores backend credentials (API tokens, BMC passwords, SNMP
// communities) in the OS keychain.
package auth

import (
	"errors"

	"nathanbeddoewebdev/nodectl/internal/util"
)

const ServiceName = "nodectl"

var ErrTokenNotFound = errors.New("auth token not found")

// Store holds one secret per backend name.
type Store interface {
	SetToken(backend string, token string) error
	GetToken(backend string) (string, error)
	DeleteToken(backend string) error
}

// DefaultStore returns the standard auth store backed by the OS keychain.
func DefaultStore() Store {
	return NewKeyringStore(ServiceName)
}

// NormalizeBackend normalizes a backend name for consistent key lookup.
func NormalizeBackend(backend string) string {
	return util.NormalizeKey(backend)
}

// Redact masks all but the last four characters of a secret for display.
func Redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
