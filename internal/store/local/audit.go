package local

import (
	"context"
	"fmt"
	"time"
)

// AuditEvent is one recorded change, written by the worker as it drains
// the change-event queue.
type AuditEvent struct {
	ID         int64
	OwnerID    string
	RecordID   string
	Action     string
	OccurredAt time.Time
}

// AppendAudit records a change event in the audit trail.
func (s *Store) AppendAudit(ctx context.Context, ownerID, recordID, action string, occurredAt time.Time) error {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (owner_id, record_id, action, occurred_at)
		VALUES (?, ?, ?, ?)`,
		ownerID, recordID, action, occurredAt.UTC())
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit events for an owner, newest
// first, capped at limit.
func (s *Store) ListAudit(ctx context.Context, ownerID string, limit int) ([]AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, record_id, action, occurred_at
		FROM audit_events
		WHERE owner_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.OwnerID, &ev.RecordID, &ev.Action, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
