package util

import "strings"

// NormalizeKey folds a backend name or config key to its canonical form:
// trimmed, lowercased, with underscores written as hyphens, so "IPMI_Local"
// and "ipmi-local" name the same backend.
func NormalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}
