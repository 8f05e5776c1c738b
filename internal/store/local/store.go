// Package local persists each owner's full record set as one JSON blob in
// SQLite. Writes recompute and re-sort the whole set, persist it in a
// single statement, then fan the new snapshot out to live subscriptions.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"flowledger/internal/core"
	"flowledger/internal/store"
)

// KeyPrefix namespaces blob keys so other persisted state can share the
// same table without colliding with record sets.
const KeyPrefix = "flowledger:transactions:"

type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[string]map[*store.Subscription]struct{}
}

// New opens (and if needed creates) the SQLite database at dbPath and
// runs pending migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:   db,
		subs: make(map[string]map[*store.Subscription]struct{}),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func ownerKey(ownerID string) string {
	return KeyPrefix + ownerID
}

// Subscribe implements store.Store. The initial snapshot reflects the
// persisted blob; a blob that fails to parse degrades to an empty set
// plus a store-level error on the subscription.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	var sub *store.Subscription
	sub = store.NewSubscription(func() {
		s.detach(ownerID, sub)
	})

	s.mu.Lock()
	if s.subs[ownerID] == nil {
		s.subs[ownerID] = make(map[*store.Subscription]struct{})
	}
	s.subs[ownerID][sub] = struct{}{}
	s.mu.Unlock()

	records, err := s.load(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load local record set",
			"owner_id", ownerID, "error", err)
		sub.Publish(store.Snapshot{Err: err})
		return sub, nil
	}
	sub.Publish(store.Snapshot{Records: records})
	return sub, nil
}

func (s *Store) detach(ownerID string, sub *store.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.subs[ownerID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(s.subs, ownerID)
		}
	}
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, ownerID string, in core.Input) (core.Transaction, error) {
	cleaned := core.CleanInput(in)
	tx := cleaned.Apply(core.Transaction{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})

	if err := s.mutate(ctx, ownerID, func(records []core.Transaction) ([]core.Transaction, error) {
		return append(records, tx), nil
	}); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved locally",
		"owner_id", ownerID,
		"record_id", tx.ID,
		"kind", tx.Kind,
		"amount", tx.Amount)

	return tx, nil
}

// Update implements store.Store. All user-editable fields are replaced.
func (s *Store) Update(ctx context.Context, ownerID, id string, in core.Input) error {
	cleaned := core.CleanInput(in)
	return s.mutate(ctx, ownerID, func(records []core.Transaction) ([]core.Transaction, error) {
		for i := range records {
			if records[i].ID == id {
				records[i] = cleaned.Apply(records[i])
				return records, nil
			}
		}
		return nil, fmt.Errorf("update %s: %w", id, core.ErrNotFound)
	})
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	return s.mutate(ctx, ownerID, func(records []core.Transaction) ([]core.Transaction, error) {
		for i := range records {
			if records[i].ID == id {
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	})
}

// mutate loads the owner's record set, applies fn, sorts, persists the
// whole blob and notifies subscribers. The write is one UPSERT; there are
// no partial writes.
func (s *Store) mutate(ctx context.Context, ownerID string, fn func([]core.Transaction) ([]core.Transaction, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked(ctx, ownerID)
	if err != nil {
		return err
	}

	next, err := fn(records)
	if err != nil {
		return err
	}
	core.SortTransactions(next)

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal record set: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO record_sets (owner_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		ownerKey(ownerID), payload)
	if err != nil {
		return fmt.Errorf("persist record set: %w", err)
	}

	// Fan out while still holding the lock so snapshots arrive in write
	// order. Publish never blocks (latest-wins channel), so this is safe.
	for sub := range s.subs[ownerID] {
		sub.Publish(store.Snapshot{Records: next})
	}
	return nil
}

func (s *Store) load(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, ownerID)
}

func (s *Store) loadLocked(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM record_sets WHERE owner_key = ?`,
		ownerKey(ownerID)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record set: %w", err)
	}

	var records []core.Transaction
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("parse record set: %w", err)
	}
	core.SortTransactions(records)
	return records, nil
}
