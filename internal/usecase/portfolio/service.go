package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/simaogato/replay-broker/internal/usecase/valuation"
)

// PriceSeries is the part of the price series portfolio creation needs
type PriceSeries interface {
	FirstTimestamp() int64
	Interval() int64
}

// CreateResult represents a freshly created portfolio
type CreateResult struct {
	Portfolio domain.Portfolio
	Interval  int64
}

// PortfolioService handles the portfolio lifecycle
type PortfolioService struct {
	Store     domain.PortfolioStore
	Prices    PriceSeries
	Valuation *valuation.ValuationService
	OrderLog  domain.OrderLog
	Logger    *zap.Logger
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(
	store domain.PortfolioStore,
	prices PriceSeries,
	valuationService *valuation.ValuationService,
	orderLog domain.OrderLog,
	logger *zap.Logger,
) *PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioService{
		Store:     store,
		Prices:    prices,
		Valuation: valuationService,
		OrderLog:  orderLog,
		Logger:    logger,
	}
}

// CreatePortfolio opens a new portfolio at the start of the series
// Logic:
//  1. Allocate a fresh identifier and its durable location
//  2. Persist the initial state (value 0) and an empty order log
//  3. Revalue at the first sample and persist the valued state
//  4. Register the portfolio in the store
//
// A portfolio that could not be persisted is never registered.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, base, quote decimal.Decimal) (*CreateResult, error) {
	id := uuid.New()
	p := domain.Portfolio{
		ID:              id,
		BaseAssetTotal:  base,
		QuoteAssetTotal: quote,
		Value:           decimal.Zero,
		CurrentTime:     s.Prices.FirstTimestamp(),
		StoragePath:     s.OrderLog.Location(id),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.OrderLog.Init(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to initialize portfolio %s: %w", id, err)
	}

	if err := s.Valuation.Revalue(&p); err != nil {
		return nil, err
	}

	if err := s.OrderLog.SaveState(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save portfolio %s: %w", id, err)
	}

	if err := s.Store.Insert(p); err != nil {
		return nil, fmt.Errorf("failed to register portfolio %s: %w", id, err)
	}

	s.Logger.Info("portfolio created",
		zap.String("portfolio_id", id.String()),
		zap.String("value", p.Value.String()))

	return &CreateResult{
		Portfolio: p,
		Interval:  s.Prices.Interval(),
	}, nil
}

// GetPortfolio returns a read-only copy of the portfolio
func (s *PortfolioService) GetPortfolio(ctx context.Context, id uuid.UUID) (*domain.Portfolio, error) {
	p, err := s.Store.Get(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPortfolioIDs returns every registered portfolio identifier
func (s *PortfolioService) ListPortfolioIDs(ctx context.Context) []uuid.UUID {
	return s.Store.ListIDs()
}

// GetOrderHistory returns the portfolio's durable order log in append order
func (s *PortfolioService) GetOrderHistory(ctx context.Context, id uuid.UUID) ([]domain.OrderRecord, error) {
	p, err := s.Store.Get(id)
	if err != nil {
		return nil, err
	}

	records, err := s.OrderLog.History(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read order history of %s: %w", id, err)
	}
	return records, nil
}
