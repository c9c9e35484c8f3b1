package auditlog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func TestFlagArgs(t *testing.T) {
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	fs.String("address", "", "")
	fs.String("password", "", "")
	fs.String("region", "", "")
	fs.Bool("wait", false, "")
	fs.Bool("yes", true, "")
	MarkSecret(fs, "password")

	if err := fs.Parse([]string{"--wait", "--password", "hunter2", "--address", "10.0.0.5", "--yes=false"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []string{"--address", "10.0.0.5", "--password", "<redacted>", "--wait", "--yes=false"}
	if diff := cmp.Diff(want, FlagArgs(fs)); diff != "" {
		t.Errorf("FlagArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkSecret_UnknownFlagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown flag")
		}
	}()
	MarkSecret(pflag.NewFlagSet("x", pflag.ContinueOnError), "missing")
}
