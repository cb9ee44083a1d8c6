package services

import (
	"context"
	"sync"
	"time"

	"moneh/internal/amqp"
	"moneh/internal/cache"
	"moneh/internal/core"
	"moneh/internal/log"
	"moneh/internal/storage"
)

// EventPublisher receives committed entry changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, msg *amqp.EntryEvent) error
}

// EntryService owns every read and write of entries. All operations are
// scoped to an owner; entries of other users behave as if they did not exist.
type EntryService struct {
	repo      storage.EntryRepository
	publisher EventPublisher
	summaries cache.Cache[core.UserID, core.Summary]
	events    *log.Events
	now       func() time.Time

	// generations counts commits per owner. A summary read across a
	// commit is not cached.
	genMu       sync.Mutex
	generations map[core.UserID]uint64
}

// NewEntryService wires the service. publisher and summaries may be nil.
func NewEntryService(repo storage.EntryRepository, publisher EventPublisher, summaries cache.Cache[core.UserID, core.Summary], logger *log.Logger) *EntryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &EntryService{
		repo:      repo,
		publisher: publisher,
		summaries:   summaries,
		events:      log.NewEvents(logger.WithComponent(log.ComponentEntries)),
		now:         time.Now,
		generations: make(map[core.UserID]uint64),
	}
}

// Create validates in and stores a new entry for owner. The stored amount
// is negative for expenses and positive for incomes whatever sign was typed.
func (s *EntryService) Create(ctx context.Context, owner core.UserID, in core.NewEntry) (core.Entry, error) {
	if owner == 0 {
		return core.Entry{}, core.ErrUnauthenticated
	}
	e, err := in.Build(owner, s.now())
	if err != nil {
		return core.Entry{}, err
	}

	err = s.repo.InTx(ctx, func(tx storage.EntryTx) error {
		id, err := tx.InsertEntry(ctx, e)
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	s.committed(ctx, amqp.EntryCreated, e)
	return e, nil
}

// List returns the owner's entries newest first.
func (s *EntryService) List(ctx context.Context, owner core.UserID) ([]core.Entry, error) {
	if owner == 0 {
		return nil, core.ErrUnauthenticated
	}
	return s.repo.ListEntries(ctx, owner)
}

func (s *EntryService) Get(ctx context.Context, owner core.UserID, id core.EntryID) (core.Entry, error) {
	var out core.Entry
	err := s.withOwnedEntry(ctx, owner, id, func(_ storage.EntryTx, e *core.Entry) error {
		out = *e
		return nil
	})
	return out, err
}

// Update applies patch to an owned entry. The entry type never changes; a
// new amount takes the sign of the existing type.
func (s *EntryService) Update(ctx context.Context, owner core.UserID, id core.EntryID, patch core.EntryPatch) (core.Entry, error) {
	if patch.Amount != nil {
		if _, err := core.ParseAmount(*patch.Amount); err != nil {
			return core.Entry{}, err
		}
	}

	var out core.Entry
	err := s.withOwnedEntry(ctx, owner, id, func(tx storage.EntryTx, e *core.Entry) error {
		if err := patch.Apply(e); err != nil {
			return err
		}
		if err := tx.UpdateEntry(ctx, *e); err != nil {
			return err
		}
		out = *e
		return nil
	})
	if err != nil {
		return core.Entry{}, err
	}

	s.committed(ctx, amqp.EntryUpdated, out)
	return out, nil
}

func (s *EntryService) Delete(ctx context.Context, owner core.UserID, id core.EntryID) error {
	var gone core.Entry
	err := s.withOwnedEntry(ctx, owner, id, func(tx storage.EntryTx, e *core.Entry) error {
		gone = *e
		return tx.DeleteEntry(ctx, e.ID)
	})
	if err != nil {
		return err
	}

	s.committed(ctx, amqp.EntryDeleted, gone)
	return nil
}

// Summary returns the entries, balance and warning tier of owner's home view.
func (s *EntryService) Summary(ctx context.Context, owner core.UserID) (core.Summary, error) {
	if s.summaries != nil {
		if sum, ok := s.summaries.Get(owner); ok {
			return sum, nil
		}
	}

	gen := s.generation(owner)
	entries, err := s.List(ctx, owner)
	if err != nil {
		return core.Summary{}, err
	}
	sum := core.Summarize(entries)

	if s.summaries != nil {
		s.genMu.Lock()
		if s.generations[owner] == gen {
			s.summaries.Set(owner, sum)
		}
		s.genMu.Unlock()
	}
	return sum, nil
}

func (s *EntryService) generation(owner core.UserID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[owner]
}

// committed runs after a successful commit: it drops the cached summary,
// logs, and publishes the change. Publish failures are logged only.
func (s *EntryService) committed(ctx context.Context, kind amqp.EventKind, e core.Entry) {
	if s.summaries != nil {
		s.genMu.Lock()
		s.generations[e.UserID]++
		s.summaries.Delete(e.UserID)
		s.genMu.Unlock()
	}

	s.events.EntryChanged(ctx, string(kind), e)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntryEvent(context.WithoutCancel(ctx), amqp.NewEntryEvent(kind, e)); err != nil {
		s.events.Failed(ctx, "Failed to publish entry event", string(kind), err,
			log.NewFields().WithEntry(e))
	}
}
