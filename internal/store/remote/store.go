// Package remote backs the record store with Cloud Firestore. Each owner's
// records live under users/{ownerID}/transactions; Subscribe attaches a
// snapshot listener ordered by occurrence date descending, so every change
// at the backend arrives as a full replacement snapshot. Writes go straight
// to Firestore and are reflected back through the listener — callers
// tolerate one round trip of staleness.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flowledger/internal/core"
	"flowledger/internal/store"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
)

type Store struct {
	client *firestore.Client
}

// document is the Firestore shape of a transaction. CreatedAt is
// server-assigned on create.
type document struct {
	Title     string    `firestore:"title"`
	Amount    float64   `firestore:"amount"`
	Kind      string    `firestore:"kind"`
	Category  string    `firestore:"category"`
	Date      string    `firestore:"date"`
	Note      string    `firestore:"note"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// New connects to Firestore for the given project. Credential options
// come from the caller (service account file or ambient credentials).
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) collection(ownerID string) *firestore.CollectionRef {
	return s.client.Collection(usersCollection).Doc(ownerID).Collection(transactionsCollection)
}

// Subscribe implements store.Store. The listener runs until Cancel; a
// listener failure delivers one error snapshot (empty set) and ends the
// stream — the consumer recovers by subscribing again.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	listenCtx, cancel := context.WithCancel(ctx)
	sub := store.NewSubscription(cancel)

	query := s.collection(ownerID).OrderBy("date", firestore.Desc)
	it := query.Snapshots(listenCtx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled || listenCtx.Err() != nil {
					return
				}
				slog.ErrorContext(listenCtx, "Firestore listener failed",
					"owner_id", ownerID, "error", err)
				sub.Publish(store.Snapshot{Err: fmt.Errorf("sync transactions: %w", err)})
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				sub.Publish(store.Snapshot{Err: fmt.Errorf("read snapshot documents: %w", err)})
				return
			}
			records := make([]core.Transaction, 0, len(docs))
			for _, doc := range docs {
				records = append(records, toTransaction(doc))
			}
			sub.Publish(store.Snapshot{Records: records})
		}
	}()

	return sub, nil
}

func toTransaction(doc *firestore.DocumentSnapshot) core.Transaction {
	var d document
	if err := doc.DataTo(&d); err != nil {
		slog.Warn("Skipping malformed transaction document",
			"record_id", doc.Ref.ID, "error", err)
		return core.Transaction{ID: doc.Ref.ID}
	}

	tx := core.Transaction{
		ID:       doc.Ref.ID,
		Title:    d.Title,
		Amount:   d.Amount,
		Kind:     core.Kind(d.Kind),
		Category: d.Category,
		Date:     d.Date,
		Note:     d.Note,
	}
	if !d.CreatedAt.IsZero() {
		tx.CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	if tx.Kind != core.Income {
		tx.Kind = core.Expense
	}
	return tx
}

// Create implements store.Store. The returned transaction carries the
// generated id; CreatedAt is filled in by the server and arrives with the
// next listener snapshot.
func (s *Store) Create(ctx context.Context, ownerID string, in core.Input) (core.Transaction, error) {
	cleaned := core.CleanInput(in)

	ref := s.collection(ownerID).NewDoc()
	_, err := ref.Set(ctx, map[string]interface{}{
		"title":     cleaned.Title,
		"amount":    cleaned.Amount,
		"kind":      string(cleaned.Kind),
		"category":  cleaned.Category,
		"date":      cleaned.Date,
		"note":      cleaned.Note,
		"createdAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to Firestore",
		"owner_id", ownerID,
		"record_id", ref.ID,
		"kind", cleaned.Kind,
		"amount", cleaned.Amount)

	return cleaned.Apply(core.Transaction{ID: ref.ID}), nil
}

// Update implements store.Store. A merge write replaces the user-editable
// fields and leaves createdAt intact.
func (s *Store) Update(ctx context.Context, ownerID, id string, in core.Input) error {
	cleaned := core.CleanInput(in)

	_, err := s.collection(ownerID).Doc(id).Set(ctx, map[string]interface{}{
		"title":    cleaned.Title,
		"amount":   cleaned.Amount,
		"kind":     string(cleaned.Kind),
		"category": cleaned.Category,
		"date":     cleaned.Date,
		"note":     cleaned.Note,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.collection(ownerID).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}
