// Package sqlite persists log entries to a local SQLite file so a session's
// errors survive ring-buffer eviction and restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// DefaultRecentLimit bounds Recent when limit is not positive.
const DefaultRecentLimit = 100

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("entry not found")

// EntryStore stores entries in SQLite. It implements deskerr.EntryStore.
type EntryStore struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*EntryStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &EntryStore{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *EntryStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id          TEXT PRIMARY KEY,
			observed_at INTEGER NOT NULL,
			name        TEXT NOT NULL,
			message     TEXT NOT NULL,
			stack       TEXT NOT NULL,
			more_json   TEXT NOT NULL,
			fingerprint TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_observed_at ON entries(observed_at);
		CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores entry, replacing any entry with the same ID.
func (s *EntryStore) Save(ctx context.Context, entry *deskerr.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO entries (id, observed_at, name, message, stack, more_json, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Timestamp.UnixNano(),
		entry.Name,
		entry.Message,
		entry.Stack,
		deskerr.EncodeMore(entry.More),
		entry.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. More is decoded from
// its stored JSON form.
func (s *EntryStore) Recent(ctx context.Context, limit int) ([]*deskerr.Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, observed_at, name, message, stack, more_json, fingerprint
		FROM entries
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*deskerr.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *EntryStore) Get(ctx context.Context, id string) (*deskerr.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, observed_at, name, message, stack, more_json, fingerprint
		FROM entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*deskerr.Entry, error) {
	var (
		e        deskerr.Entry
		nanos    int64
		moreJSON string
	)
	if err := row.Scan(&e.ID, &nanos, &e.Name, &e.Message, &e.Stack, &moreJSON, &e.Fingerprint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.Timestamp = time.Unix(0, nanos)
	if err := json.Unmarshal([]byte(moreJSON), &e.More); err != nil {
		e.More = map[string]any{"raw": moreJSON}
	}
	return &e, nil
}

// Count returns the number of stored entries.
func (s *EntryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// Prune keeps the newest keep entries and deletes the rest. It returns the
// number of deleted entries.
func (s *EntryStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entries WHERE id NOT IN (
			SELECT id FROM entries ORDER BY observed_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune entries: %w", err)
	}
	return res.RowsAffected()
}

// Path returns the database file path.
func (s *EntryStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *EntryStore) Close() error {
	return s.db.Close()
}
