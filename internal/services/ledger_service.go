// Package services orchestrates record writes across the selected store
// and the optional change-event publisher.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"flowledger/internal/core"
	"flowledger/internal/events"
	"flowledger/internal/store"
)

// ChangePublisher is the slice of the events client the service needs.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *events.ChangeMessage) error
}

// LedgerService wraps a record store and announces successful writes on
// the event bus. Publish failures never fail the write: the record is
// already persisted, the announcement is best-effort.
type LedgerService struct {
	store     store.Store
	publisher ChangePublisher
}

func NewLedgerService(s store.Store, publisher ChangePublisher) *LedgerService {
	return &LedgerService{store: s, publisher: publisher}
}

// Subscribe implements store.Store.
func (s *LedgerService) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	return s.store.Subscribe(ctx, ownerID)
}

// Create implements store.Store.
func (s *LedgerService) Create(ctx context.Context, ownerID string, in core.Input) (core.Transaction, error) {
	tx, err := s.store.Create(ctx, ownerID, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.announce(ctx, ownerID, tx.ID, events.ActionCreated)
	return tx, nil
}

// Update implements store.Store.
func (s *LedgerService) Update(ctx context.Context, ownerID, id string, in core.Input) error {
	if err := s.store.Update(ctx, ownerID, id, in); err != nil {
		return err
	}
	s.announce(ctx, ownerID, id, events.ActionUpdated)
	return nil
}

// Delete implements store.Store.
func (s *LedgerService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.announce(ctx, ownerID, id, events.ActionDeleted)
	return nil
}

// Close implements store.Store. The underlying store is owned by the
// backend factory, so only the publisher-free passthrough closes here.
func (s *LedgerService) Close() error {
	return nil
}

func (s *LedgerService) announce(ctx context.Context, ownerID, recordID, action string) {
	if s.publisher == nil {
		return
	}
	msg := events.NewChangeMessage(ownerID, recordID, action)
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"owner_id", ownerID,
			"record_id", recordID,
			"action", action,
			"error", err)
	}
}
