// Package worker drains the change-event queue into the local audit
// trail, giving every write a durable history independent of which
// backend served it.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"flowledger/internal/events"
	"flowledger/internal/log"
)

// AuditSink records one change event. The local store implements it.
type AuditSink interface {
	AppendAudit(ctx context.Context, ownerID, recordID, action string, occurredAt time.Time) error
}

// AuditWorker writes consumed change messages to the audit sink and
// keeps running counters for periodic progress logs.
type AuditWorker struct {
	sink   AuditSink
	logger *log.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

func NewAuditWorker(sink AuditSink, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		sink:   sink,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange records one message. Returning an error makes the
// consumer requeue the delivery.
func (w *AuditWorker) HandleChange(ctx context.Context, msg *events.ChangeMessage) error {
	if msg.OwnerID == "" || msg.Action == "" {
		w.failed.Add(1)
		return fmt.Errorf("change message missing owner or action")
	}

	if err := w.sink.AppendAudit(ctx, msg.OwnerID, msg.RecordID, msg.Action, msg.Timestamp); err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to record audit event",
			log.FieldOwnerID, msg.OwnerID,
			log.FieldRecordID, msg.RecordID,
			log.FieldAction, msg.Action,
			log.FieldError, err.Error())
		return err
	}

	w.processed.Add(1)
	w.logger.DebugContext(ctx, "Audit event recorded",
		log.FieldOwnerID, msg.OwnerID,
		log.FieldRecordID, msg.RecordID,
		log.FieldAction, msg.Action)
	return nil
}

// Stats returns the processed and failed message counts.
func (w *AuditWorker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}

// LogStats emits a progress line, meant to run on a ticker.
func (w *AuditWorker) LogStats(ctx context.Context) {
	processed, failed := w.Stats()
	w.logger.InfoContext(ctx, "Audit worker progress",
		"processed", processed,
		"failed", failed)
}
