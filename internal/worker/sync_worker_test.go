package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/amqp"
	"moneh/internal/core"
	"moneh/internal/sheets/memory"
)

func sampleEntry(id core.EntryID) core.Entry {
	return core.Entry{
		ID:          id,
		UserID:      1,
		Amount:      decimal.RequireFromString("-9.50"),
		Description: "cinema",
		Type:        core.Expense,
		Category:    "fun",
		CreatedAt:   time.Date(2024, 2, 3, 20, 0, 0, 0, time.UTC),
	}
}

func TestHandleEntryEvent(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil)

	e := sampleEntry(4)
	require.NoError(t, w.HandleEntryEvent(ctx, amqp.NewEntryEvent(amqp.EntryCreated, e)))

	rows := mirror.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "cinema", rows[0].Description)
	assert.True(t, rows[0].Amount.Equal(e.Amount))

	e.Description = "theatre"
	require.NoError(t, w.HandleEntryEvent(ctx, amqp.NewEntryEvent(amqp.EntryUpdated, e)))
	rows = mirror.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "theatre", rows[0].Description)

	require.NoError(t, w.HandleEntryEvent(ctx, amqp.NewEntryEvent(amqp.EntryDeleted, e)))
	assert.Empty(t, mirror.Rows())
}

func TestHandleEntryEventDropsBadPayload(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil)

	msg := amqp.NewEntryEvent(amqp.EntryCreated, sampleEntry(1))
	msg.Amount = "lots"

	assert.NoError(t, w.HandleEntryEvent(context.Background(), msg))
	assert.Empty(t, mirror.Rows())
}

type failingMirror struct{ err error }

func (f failingMirror) Upsert(context.Context, core.Entry) (string, error) { return "", f.err }
func (f failingMirror) Remove(context.Context, core.EntryID) error         { return f.err }

func TestHandleEntryEventPropagatesMirrorErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(failingMirror{err: boom}, nil)

	err := w.HandleEntryEvent(context.Background(), amqp.NewEntryEvent(amqp.EntryCreated, sampleEntry(2)))
	assert.ErrorIs(t, err, boom)

	err = w.HandleEntryEvent(context.Background(), amqp.NewEntryEvent(amqp.EntryDeleted, sampleEntry(2)))
	assert.ErrorIs(t, err, boom)
}

type fakeConsumer struct {
	events []*amqp.EntryEvent
}

func (f *fakeConsumer) ConsumeEntryEvents(ctx context.Context, handler func(context.Context, *amqp.EntryEvent) error) error {
	for _, ev := range f.events {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopsWithContext(t *testing.T) {
	mirror := memory.New()
	w := NewSyncWorker(mirror, nil)
	consumer := &fakeConsumer{events: []*amqp.EntryEvent{
		amqp.NewEntryEvent(amqp.EntryCreated, sampleEntry(1)),
		amqp.NewEntryEvent(amqp.EntryCreated, sampleEntry(2)),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx, consumer)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, mirror.Rows(), 2)
}
