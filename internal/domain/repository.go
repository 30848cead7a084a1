package domain

import (
	"context"

	"github.com/google/uuid"
)

// PortfolioStore is the in-memory registry of all portfolios.
// It is the single source of truth for portfolio state; every other view is a copy.
type PortfolioStore interface {
	// Insert registers a freshly created portfolio
	Insert(p Portfolio) error

	// Get returns a copy of the portfolio, or ErrNotFound
	Get(id uuid.UUID) (Portfolio, error)

	// Mutate applies fn exclusively for this portfolio.
	// fn receives a working copy which is committed only if fn returns nil,
	// so a failed operation leaves the stored portfolio untouched.
	// Mutations of different portfolios do not block each other.
	Mutate(id uuid.UUID, fn func(p *Portfolio) error) (Portfolio, error)

	// ListIDs returns every registered identifier
	ListIDs() []uuid.UUID

	// Snapshot returns a consistent copy of every portfolio
	Snapshot() map[uuid.UUID]Portfolio

	// Restore loads portfolios recovered from a snapshot, replacing existing ids
	Restore(portfolios []Portfolio)
}

// OrderLog defines the durable per-portfolio storage of state and order history
type OrderLog interface {
	// Location returns the storage path assigned to a portfolio
	Location(id uuid.UUID) string

	// Init creates the durable location with the initial state and an empty order log
	Init(ctx context.Context, p Portfolio) error

	// Append durably adds a record to the portfolio's order log
	Append(ctx context.Context, p Portfolio, record OrderRecord) error

	// SaveState overwrites the persisted portfolio state
	SaveState(ctx context.Context, p Portfolio) error

	// History returns the order log in append order
	History(ctx context.Context, p Portfolio) ([]OrderRecord, error)
}

// SnapshotRepository defines the whole-store recovery file
type SnapshotRepository interface {
	// Save overwrites the recovery snapshot with the given portfolios
	Save(ctx context.Context, portfolios map[uuid.UUID]Portfolio) error

	// Load reads the recovery snapshot back
	Load(ctx context.Context) ([]Portfolio, error)
}
