package sheets

import (
	"context"

	"moneh/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryMirror keeps one spreadsheet row per entry, keyed by entry id.
	EntryMirror interface {
		// Upsert writes e into its row, appending a row the first time.
		Upsert(ctx context.Context, e core.Entry) (rowRef string, err error)
		// Remove clears the row of id. Removing an unknown id is not an error.
		Remove(ctx context.Context, id core.EntryID) error
	}
)
