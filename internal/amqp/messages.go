package amqp

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"moneh/internal/core"
)

// EventKind names what happened to an entry.
type EventKind string

const (
	EntryCreated EventKind = "entry.created"
	EntryUpdated EventKind = "entry.updated"
	EntryDeleted EventKind = "entry.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case EntryCreated, EntryUpdated, EntryDeleted:
		return true
	}
	return false
}

// EntryEvent carries a committed entry change. It holds the full entry so
// consumers never need database access. Amount is the signed decimal text.
type EntryEvent struct {
	Kind        EventKind `json:"kind"`
	EntryID     int64     `json:"entry_id"`
	UserID      int64     `json:"user_id"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryEvent builds the event for e.
func NewEntryEvent(kind EventKind, e core.Entry) *EntryEvent {
	return &EntryEvent{
		Kind:        kind,
		EntryID:     int64(e.ID),
		UserID:      int64(e.UserID),
		Amount:      core.FormatAmount(e.Amount),
		Type:        e.Type.String(),
		Category:    e.Category,
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC(),
		Timestamp:   time.Now().UTC(),
	}
}

// Entry converts the event payload back into a domain entry.
func (m *EntryEvent) Entry() (core.Entry, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse amount %q: %w", m.Amount, err)
	}
	return core.Entry{
		ID:          core.EntryID(m.EntryID),
		UserID:      core.UserID(m.UserID),
		Amount:      amount,
		Description: m.Description,
		Type:        core.EntryType(m.Type),
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// ToJSON converts the message to JSON bytes
func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventFromJSON decodes and sanity-checks a message body.
func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.EntryID <= 0 {
		return nil, fmt.Errorf("event has no entry id")
	}
	return &msg, nil
}
