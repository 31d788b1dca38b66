// store.go persists received reports in BadgerDB.

package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

const reportPrefix = "report:"

// DefaultListLimit is used by List when limit is not positive.
const DefaultListLimit = 100

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("report not found")

// StoreConfig holds configuration for the report store.
type StoreConfig struct {
	// Path to the database directory. Required unless InMemory is true.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool
}

// StoredReport is a received payload with the identity the collector
// assigned to it.
type StoredReport struct {
	ID          string                `json:"id"`
	ReceivedAt  time.Time             `json:"received_at"`
	Fingerprint string                `json:"fingerprint"`
	Payload     deskerr.ReportPayload `json:"payload"`
}

// Entry reconstructs the log entry the payload was built from, enough to
// compose an issue URL.
func (r *StoredReport) Entry() *deskerr.Entry {
	entry := &deskerr.Entry{
		ID:          r.ID,
		Timestamp:   r.ReceivedAt,
		Name:        r.Payload.ErrorName,
		Message:     r.Payload.Message,
		Stack:       r.Payload.Stack,
		Fingerprint: r.Fingerprint,
	}
	var more map[string]any
	if r.Payload.More != "" && json.Unmarshal([]byte(r.Payload.More), &more) == nil {
		entry.More = more
	}
	return entry
}

// Store wraps BadgerDB for report storage.
type Store struct {
	db *badger.DB
}

// NewStore opens the store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	if cfg.SyncWrites {
		opts = opts.WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// Put stores a report, replacing any report with the same id.
func (s *Store) Put(ctx context.Context, report *StoredReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(reportPrefix+report.ID), data)
	})
}

// Get retrieves a report by id.
func (s *Store) Get(ctx context.Context, id string) (*StoredReport, error) {
	var report *StoredReport

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("getting report: %w", err)
		}
		return item.Value(func(val []byte) error {
			report = &StoredReport{}
			if err := json.Unmarshal(val, report); err != nil {
				return fmt.Errorf("unmarshaling report: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// List returns up to limit reports, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*StoredReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var reports []*StoredReport
	err := s.each(func(r *StoredReport) error {
		reports = append(reports, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ReceivedAt.After(reports[j].ReceivedAt)
	})
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// Count returns the number of stored reports.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reportPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Cleanup deletes reports received more than maxAge ago and returns how
// many were removed.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	var stale [][]byte
	err := s.each(func(r *StoredReport) error {
		if r.ReceivedAt.Before(cutoff) {
			stale = append(stale, []byte(reportPrefix+r.ID))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("deleting report: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flushing deletes: %w", err)
	}
	return len(stale), nil
}

func (s *Store) each(fn func(*StoredReport) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reportPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var report StoredReport
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &report)
			})
			if err != nil {
				continue // Skip malformed entries.
			}
			if err := fn(&report); err != nil {
				return err
			}
		}
		return nil
	})
}
