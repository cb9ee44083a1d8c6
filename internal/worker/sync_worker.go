package worker

import (
	"context"
	"fmt"

	"moneh/internal/amqp"
	"moneh/internal/core"
	"moneh/internal/log"
	"moneh/internal/sheets"
)

// SyncWorker applies entry events to a spreadsheet mirror.
type SyncWorker struct {
	mirror sheets.EntryMirror
	logger *log.Logger
}

func NewSyncWorker(mirror sheets.EntryMirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEntryEvent processes a single entry event from AMQP. A returned
// error makes the consumer requeue the message.
func (w *SyncWorker) HandleEntryEvent(ctx context.Context, msg *amqp.EntryEvent) error {
	w.logger.InfoContext(ctx, "Processing entry event",
		"kind", string(msg.Kind),
		log.FieldEntryID, msg.EntryID,
		log.FieldOperation, log.OpSync)

	switch msg.Kind {
	case amqp.EntryCreated, amqp.EntryUpdated:
		e, err := msg.Entry()
		if err != nil {
			// A payload that cannot be decoded will not get better on retry.
			w.logger.ErrorContext(ctx, "Dropping undecodable entry event",
				log.FieldEntryID, msg.EntryID,
				log.FieldError, err)
			return nil
		}
		ref, err := w.mirror.Upsert(ctx, e)
		if err != nil {
			return fmt.Errorf("upsert entry %d: %w", msg.EntryID, err)
		}
		w.logger.InfoContext(ctx, "Successfully synced entry",
			log.FieldEntryID, msg.EntryID,
			log.FieldSheetsRow, ref)
	case amqp.EntryDeleted:
		if err := w.mirror.Remove(ctx, core.EntryID(msg.EntryID)); err != nil {
			return fmt.Errorf("remove entry %d: %w", msg.EntryID, err)
		}
		w.logger.InfoContext(ctx, "Successfully removed entry",
			log.FieldEntryID, msg.EntryID)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown entry event", "kind", string(msg.Kind))
	}
	return nil
}

// Run consumes entry events until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Sync worker started")
	err := consumer.ConsumeEntryEvents(ctx, w.HandleEntryEvent)
	w.logger.InfoContext(ctx, "Sync worker stopped")
	return err
}

// Consumer delivers entry events to a handler. *amqp.Client implements it.
type Consumer interface {
	ConsumeEntryEvents(ctx context.Context, handler func(context.Context, *amqp.EntryEvent) error) error
}
