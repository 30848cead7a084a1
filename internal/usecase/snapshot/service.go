package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/replay-broker/internal/domain"
)

// DefaultInterval is the wall-clock period between recovery snapshots
const DefaultInterval = 500 * time.Millisecond

// SnapshotService periodically copies the whole portfolio store to the recovery file
type SnapshotService struct {
	Store    domain.PortfolioStore
	Repo     domain.SnapshotRepository
	Interval time.Duration
	Logger   *zap.Logger
}

// NewSnapshotService creates a new SnapshotService instance
func NewSnapshotService(
	store domain.PortfolioStore,
	repo domain.SnapshotRepository,
	interval time.Duration,
	logger *zap.Logger,
) *SnapshotService {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		Store:    store,
		Repo:     repo,
		Interval: interval,
		Logger:   logger,
	}
}

// SaveOnce writes one consistent copy of the store
func (s *SnapshotService) SaveOnce(ctx context.Context) error {
	portfolios := s.Store.Snapshot()
	if err := s.Repo.Save(ctx, portfolios); err != nil {
		return fmt.Errorf("failed to save snapshot of %d portfolios: %w", len(portfolios), err)
	}
	return nil
}

// Run saves a snapshot every Interval until ctx is cancelled.
// Failed saves are logged and skipped; the next tick simply tries again.
// A last snapshot is written on the way out.
func (s *SnapshotService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info("snapshot saver started", zap.Duration("interval", s.Interval))

	for {
		select {
		case <-ctx.Done():
			if err := s.SaveOnce(context.WithoutCancel(ctx)); err != nil {
				s.Logger.Warn("final snapshot failed", zap.Error(err))
			}
			s.Logger.Info("snapshot saver stopped")
			return nil
		case <-ticker.C:
			if err := s.SaveOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				s.Logger.Warn("snapshot failed", zap.Error(err))
			}
		}
	}
}

// Restore loads the recovery file into the store
// Logic:
//   - Read every portfolio from the recovery file
//   - Replace store entries with the same identifier
//
// Returns the number of recovered portfolios.
func (s *SnapshotService) Restore(ctx context.Context) (int, error) {
	portfolios, err := s.Repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load snapshot: %w", err)
	}

	s.Store.Restore(portfolios)

	s.Logger.Info("portfolios recovered from snapshot", zap.Int("count", len(portfolios)))
	return len(portfolios), nil
}
