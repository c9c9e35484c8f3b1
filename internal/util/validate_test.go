package util

import (
	"strings"
	"testing"
)

func TestValidateNodeName_Valid(t *testing.T) {
	valid := []string{
		"n",
		"node01",
		"cn-1",
		"gpu_07",
		"rack3.node12",
		"UPPERCASE",
		"123numeric",
	}
	for _, name := range valid {
		t.Run(name, func(t *testing.T) {
			if err := ValidateNodeName(name); err != nil {
				t.Errorf("expected %q to be valid, got error: %v", name, err)
			}
		})
	}
}

func TestValidateNodeName_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		wantMsg string
	}{
		{"", "must not be empty"},
		{"node 01", "invalid characters"},
		{"node[01-04]", "invalid characters"},
		{"-node", "must start with an alphanumeric"},
		{"_node", "must start with an alphanumeric"},
		{"node-", "must not end with a hyphen"},
		{"node.", "must not end with a hyphen or period"},
		{"node@rack", "invalid characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeName(tt.name)
			if err == nil {
				t.Errorf("expected %q to be invalid, got nil", tt.name)
				return
			}
			if got := err.Error(); !strings.Contains(got, tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, got)
			}
		})
	}
}
