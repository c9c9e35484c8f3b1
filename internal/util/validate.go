package util

import (
	"fmt"
	"regexp"
)

// validNameChars matches alphanumeric characters, hyphens, underscores, and periods.
var validNameChars = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)

// ValidateNodeName checks that an inventory node name is usable as a
// hostname-like label:
//   - Not empty
//   - Only alphanumeric characters, hyphens (-), underscores (_), and periods (.)
//   - First character must be alphanumeric
//   - Last character must not be a hyphen or period
func ValidateNodeName(name string) error {
	if name == "" {
		return fmt.Errorf("node name must not be empty")
	}

	if !validNameChars.MatchString(name) {
		return fmt.Errorf("node name %q contains invalid characters (only a-z, A-Z, 0-9, hyphens, underscores, and periods are allowed)", name)
	}

	first := name[0]
	if !isAlphanumeric(first) {
		return fmt.Errorf("node name must start with an alphanumeric character, got %q", string(first))
	}

	last := name[len(name)-1]
	if last == '-' || last == '.' {
		return fmt.Errorf("node name must not end with a hyphen or period, got %q", string(last))
	}

	return nil
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
