// Package journal persists published events to SQLite for later
// inspection (the `repolens tail` command). The journal is an
// append-only audit log: it is never read back to rebuild agent state.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/repolens/repolens/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS journal_events (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	timestamp  DATETIME NOT NULL,
	repository TEXT NOT NULL,
	severity   TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_journal_events_repository ON journal_events(repository);
CREATE INDEX IF NOT EXISTS idx_journal_events_type ON journal_events(type);
CREATE INDEX IF NOT EXISTS idx_journal_events_timestamp ON journal_events(timestamp);
`

// timeLayout stores timestamps in UTC with zero-padded nanoseconds.
// Fixed width keeps lexicographic comparison (ORDER BY, range filters
// on the timestamp column) consistent with chronological order, which
// RFC3339Nano's trimmed trailing zeros would break.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Journal is a SQLite-backed event log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a journal database at path.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// WAL keeps readers (tail) from blocking the writer (agent).
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one event to the journal.
func (j *Journal) Record(ctx context.Context, event *events.Event) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	query := `
		INSERT INTO journal_events (id, type, timestamp, repository, severity, message, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = j.db.ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.Timestamp.UTC().Format(timeLayout),
		event.Repository,
		event.Severity,
		event.Message,
		string(dataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record event (type=%s, repository=%s): %w", event.Type, event.Repository, err)
	}
	return nil
}

// Filter narrows journal queries. Zero values mean "no constraint".
type Filter struct {
	Repository string
	Type       events.EventType
	Since      time.Time
	Limit      int
}

// Query returns events matching the filter, most recent first.
func (j *Journal) Query(ctx context.Context, filter Filter) ([]*events.Event, error) {
	query := `
		SELECT id, type, timestamp, repository, severity, message, data
		FROM journal_events
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Repository != "" {
		query += " AND repository = ?"
		args = append(args, filter.Repository)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp > ?"
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// Count returns the number of journaled events, optionally scoped to
// one repository.
func (j *Journal) Count(ctx context.Context, repository string) (int, error) {
	query := "SELECT COUNT(*) FROM journal_events"
	args := []interface{}{}
	if repository != "" {
		query += " WHERE repository = ?"
		args = append(args, repository)
	}

	var count int
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count journal events: %w", err)
	}
	return count, nil
}

func scanEvent(rows *sql.Rows) (*events.Event, error) {
	var event events.Event
	var timestamp, dataJSON string

	if err := rows.Scan(&event.ID, &event.Type, &timestamp, &event.Repository,
		&event.Severity, &event.Message, &dataJSON); err != nil {
		return nil, fmt.Errorf("failed to scan journal row: %w", err)
	}

	// The DATETIME decltype makes the driver decode the stored text to a
	// time.Time, which database/sql re-encodes into the string scan target
	// as RFC3339Nano (trailing zeros trimmed), so read leniently here.
	// Storage stays fixed-width via timeLayout.
	parsed, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse journal timestamp %q: %w", timestamp, err)
	}
	event.Timestamp = parsed

	if err := json.Unmarshal([]byte(dataJSON), &event.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}
	return &event, nil
}
