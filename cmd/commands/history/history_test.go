package history

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"nathanbeddoewebdev/nodectl/internal/auditlog"
	"nathanbeddoewebdev/nodectl/internal/database"
)

// setupHistory points the database at a temp file and seeds it.
func setupHistory(t *testing.T, entries ...*auditlog.Entry) {
	t.Helper()
	database.SetPath(filepath.Join(t.TempDir(), "history.db"))
	t.Cleanup(database.ResetPath)

	repo, err := auditlog.Open()
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer repo.Close()
	for _, entry := range entries {
		if err := repo.Save(entry); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
}

func execHistory(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	cmd.Execute()
	return outBuf.String(), errBuf.String()
}

func TestList_Empty(t *testing.T) {
	setupHistory(t)

	stdout, _ := execHistory(t, "list")

	if !strings.Contains(stdout, "No history entries found.") {
		t.Errorf("unexpected stdout: %s", stdout)
	}
}

func TestList_Table(t *testing.T) {
	setupHistory(t,
		&auditlog.Entry{Backend: "ipmi", Node: "10.0.0.5", Action: "reboot", Wait: true, Outcome: auditlog.OutcomeSuccess, DurationMs: 4200},
		&auditlog.Entry{Backend: "aws", Node: "i-0abc", Action: "stop", Outcome: "ConnectionError", Detail: "failed to issue stop"},
	)

	stdout, _ := execHistory(t, "list")

	for _, want := range []string{"BACKEND", "10.0.0.5", "reboot (wait)", "4.2s", "ConnectionError", "failed to issue stop"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in table, got:\n%s", want, stdout)
		}
	}
}

func TestList_FilterByNode(t *testing.T) {
	setupHistory(t,
		&auditlog.Entry{Node: "node01", Action: "start", Outcome: auditlog.OutcomeSuccess},
		&auditlog.Entry{Node: "node02", Action: "stop", Outcome: auditlog.OutcomeSuccess},
	)

	stdout, _ := execHistory(t, "list", "--node", "node02", "-o", "json")

	var entries []auditlog.Entry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(entries) != 1 || entries[0].Node != "node02" {
		t.Errorf("expected only node02, got %+v", entries)
	}
}

func TestList_FilterByRun(t *testing.T) {
	setupHistory(t,
		&auditlog.Entry{RunID: "batch-1", Node: "node01", Outcome: auditlog.OutcomeSuccess},
		&auditlog.Entry{RunID: "batch-2", Node: "node02", Outcome: auditlog.OutcomeSuccess},
		&auditlog.Entry{RunID: "batch-1", Node: "node03", Outcome: auditlog.OutcomeSuccess},
	)

	stdout, _ := execHistory(t, "list", "--run", "batch-1", "-o", "json")

	var entries []auditlog.Entry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	var nodes []string
	for _, e := range entries {
		nodes = append(nodes, e.Node)
	}
	if diff := cmp.Diff([]string{"node01", "node03"}, nodes); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestList_InvalidFlags(t *testing.T) {
	setupHistory(t)

	if _, stderr := execHistory(t, "list", "--limit", "0"); !strings.Contains(stderr, "limit must be greater than 0") {
		t.Errorf("expected limit error, got: %s", stderr)
	}
	if _, stderr := execHistory(t, "list", "-o", "yaml"); !strings.Contains(stderr, "unsupported output format") {
		t.Errorf("expected output format error, got: %s", stderr)
	}
}

func TestPrune(t *testing.T) {
	setupHistory(t,
		&auditlog.Entry{Node: "node01", Outcome: auditlog.OutcomeSuccess, Timestamp: time.Now().UTC().Add(-10 * 24 * time.Hour)},
		&auditlog.Entry{Node: "node01", Outcome: auditlog.OutcomeSuccess, Timestamp: time.Now().UTC().Add(-time.Hour)},
	)

	stdout, stderr := execHistory(t, "prune", "--older-than", "1w")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "Removed 1 history entr(y/ies).") {
		t.Errorf("unexpected stdout: %s", stdout)
	}
}

func TestPrune_RequiresAge(t *testing.T) {
	setupHistory(t)

	_, stderr := execHistory(t, "prune")

	if !strings.Contains(stderr, "--older-than is required") {
		t.Errorf("expected missing flag error, got: %s", stderr)
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"72h", 72 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"-1d", 0, true},
		{"xd", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAge(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAge(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseAge(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int64]string{
		250:     "250ms",
		4200:    "4.2s",
		125000:  "2m",
		7200000: "2h",
	}
	for ms, want := range tests {
		if got := formatDuration(ms); got != want {
			t.Errorf("formatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}
