package auditlog

import (
	"database/sql"
	"fmt"
	"time"

	"nathanbeddoewebdev/nodectl/internal/database"
)

// Repository defines the persistence interface for action history.
type Repository interface {
	Save(entry *Entry) error
	List(limit int) ([]Entry, error)
	ListByNode(node string, limit int) ([]Entry, error)
	ListByRun(runID string) ([]Entry, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the history repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("auditlog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS action_history (
            id          INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id      TEXT    NOT NULL DEFAULT '',
            timestamp   TEXT    NOT NULL,
            backend     TEXT    NOT NULL DEFAULT '',
            node        TEXT    NOT NULL DEFAULT '',
            action      TEXT    NOT NULL DEFAULT '',
            wait        INTEGER NOT NULL DEFAULT 0,
            args        TEXT    NOT NULL DEFAULT '',
            outcome     TEXT    NOT NULL DEFAULT '',
            detail      TEXT    NOT NULL DEFAULT '',
            final_on    INTEGER NOT NULL DEFAULT 0,
            duration_ms INTEGER NOT NULL DEFAULT 0
        );
        CREATE INDEX IF NOT EXISTS idx_action_history_timestamp ON action_history(timestamp);
        CREATE INDEX IF NOT EXISTS idx_action_history_node ON action_history(node);
        CREATE INDEX IF NOT EXISTS idx_action_history_run ON action_history(run_id);
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("auditlog: migration failed: %w", err)
	}
	return nil
}

// Save inserts a new history entry.
func (r *SQLiteRepository) Save(entry *Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := r.db.Exec(`
        INSERT INTO action_history (run_id, timestamp, backend, node, action, wait, args, outcome, detail, final_on, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Timestamp.Format(time.RFC3339Nano), entry.Backend, entry.Node, entry.Action,
		boolInt(entry.Wait), entry.Args, entry.Outcome, entry.Detail, boolInt(entry.FinalOn), entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("auditlog: insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("auditlog: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

const selectColumns = `
        SELECT id, run_id, timestamp, backend, node, action, wait, args, outcome, detail, final_on, duration_ms
        FROM action_history`

// List returns the most recent n entries.
func (r *SQLiteRepository) List(limit int) ([]Entry, error) {
	rows, err := r.db.Query(selectColumns+` ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListByNode returns the most recent n entries for a node label.
func (r *SQLiteRepository) ListByNode(node string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(selectColumns+` WHERE node = ? ORDER BY timestamp DESC LIMIT ?`, node, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListByRun returns every entry of one invocation in insertion order.
func (r *SQLiteRepository) ListByRun(runID string) ([]Entry, error) {
	rows, err := r.db.Query(selectColumns+` WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Prune deletes entries older than the given duration.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.Exec(`DELETE FROM action_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auditlog: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanRows(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var timestampStr string
		var wait, finalOn int
		err := rows.Scan(
			&entry.ID, &entry.RunID, &timestampStr, &entry.Backend, &entry.Node, &entry.Action,
			&wait, &entry.Args, &entry.Outcome, &entry.Detail, &finalOn, &entry.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("auditlog: scan failed: %w", err)
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestampStr)
		entry.Wait = wait != 0
		entry.FinalOn = finalOn != 0
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
