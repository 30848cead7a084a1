package memory

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/replay-broker/internal/domain"
)

// entry guards a single portfolio.
// Writers hold mu exclusively for the whole read-modify-write of a mutation,
// readers (Get, Snapshot) hold it shared.
type entry struct {
	mu        sync.RWMutex
	portfolio domain.Portfolio
}

// portfolioStore implements domain.PortfolioStore with one lock per portfolio.
// The map lock is only held to find or add an entry, never during a mutation.
type portfolioStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

// NewPortfolioStore creates an empty in-memory portfolio store
func NewPortfolioStore() domain.PortfolioStore {
	return &portfolioStore{
		entries: make(map[uuid.UUID]*entry),
	}
}

// Insert registers a new portfolio. Identifiers are never reused.
func (s *portfolioStore) Insert(p domain.Portfolio) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[p.ID]; exists {
		return fmt.Errorf("portfolio %s already exists", p.ID)
	}
	s.entries[p.ID] = &entry{portfolio: p}

	return nil
}

// Get returns a copy of the portfolio
func (s *portfolioStore) Get(id uuid.UUID) (domain.Portfolio, error) {
	e, err := s.lookup(id)
	if err != nil {
		return domain.Portfolio{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.portfolio, nil
}

// Mutate runs fn on a working copy under the portfolio's exclusive lock
// and commits the copy only when fn succeeds
func (s *portfolioStore) Mutate(id uuid.UUID, fn func(p *domain.Portfolio) error) (domain.Portfolio, error) {
	e, err := s.lookup(id)
	if err != nil {
		return domain.Portfolio{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.portfolio
	if err := fn(&working); err != nil {
		return e.portfolio, err
	}

	// Identity is owned by the store
	working.ID = e.portfolio.ID
	working.StoragePath = e.portfolio.StoragePath
	e.portfolio = working

	return working, nil
}

// ListIDs returns every registered identifier
func (s *portfolioStore) ListIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot copies every portfolio, each one under its own read lock,
// so no copy mixes pre- and post-mutation fields
func (s *portfolioStore) Snapshot() map[uuid.UUID]domain.Portfolio {
	s.mu.RLock()
	entries := make(map[uuid.UUID]*entry, len(s.entries))
	for id, e := range s.entries {
		entries[id] = e
	}
	s.mu.RUnlock()

	snapshot := make(map[uuid.UUID]domain.Portfolio, len(entries))
	for id, e := range entries {
		e.mu.RLock()
		snapshot[id] = e.portfolio
		e.mu.RUnlock()
	}
	return snapshot
}

// Restore loads recovered portfolios, replacing any entry with the same id
func (s *portfolioStore) Restore(portfolios []domain.Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range portfolios {
		if p.ID == uuid.Nil {
			continue
		}
		s.entries[p.ID] = &entry{portfolio: p}
	}
}

func (s *portfolioStore) lookup(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return e, nil
}
