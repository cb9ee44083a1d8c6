// Package memory is an in-process EntryMirror used by tests and by the
// worker when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneh/internal/core"
)

type Store struct {
	mu    sync.Mutex
	rows  []core.Entry
	index map[core.EntryID]int
}

func New() *Store {
	return &Store{index: map[core.EntryID]int{}}
}

// Upsert stores the entry and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, e core.Entry) (string, error) {
	if e.ID <= 0 {
		return "", fmt.Errorf("entry without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[e.ID]; ok {
		s.rows[i] = e
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, e)
	s.index[e.ID] = len(s.rows) - 1
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Remove blanks the row of id, leaving later rows in place like a sheet.
func (s *Store) Remove(_ context.Context, id core.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[id]; ok {
		s.rows[i] = core.Entry{}
		delete(s.index, id)
	}
	return nil
}

// Rows returns the mirrored entries in row order, skipping cleared rows.
func (s *Store) Rows() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Entry, 0, len(s.index))
	for _, e := range s.rows {
		if e.ID != 0 {
			out = append(out, e)
		}
	}
	return out
}
