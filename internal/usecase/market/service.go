package market

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/simaogato/replay-broker/internal/usecase/valuation"
)

// PriceSeries is the part of the price series market queries need
type PriceSeries interface {
	Lookup(ts int64) (decimal.Decimal, error)
	Interval() int64
	First() domain.PricePoint
}

// Quote represents a price sample returned to a client
type Quote struct {
	Time     int64
	Price    decimal.Decimal
	Interval int64
}

// MarketService handles price queries against the replayed series
type MarketService struct {
	Store     domain.PortfolioStore
	Prices    PriceSeries
	Valuation *valuation.ValuationService
	OrderLog  domain.OrderLog
	Logger    *zap.Logger
}

// NewMarketService creates a new MarketService instance
func NewMarketService(
	store domain.PortfolioStore,
	prices PriceSeries,
	valuationService *valuation.ValuationService,
	orderLog domain.OrderLog,
	logger *zap.Logger,
) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{
		Store:     store,
		Prices:    prices,
		Valuation: valuationService,
		OrderLog:  orderLog,
		Logger:    logger,
	}
}

// GetCurrentMarket returns the global market sample.
// There is no live feed, so the market cursor stays on the first sample.
func (s *MarketService) GetCurrentMarket() domain.PricePoint {
	return s.Prices.First()
}

// GetPriceAt returns a price for the portfolio's client
// Logic:
//   - at != nil: read-only quote of that exact sample, the portfolio is not touched
//   - at == nil: advance the portfolio clock by one interval, revalue, and quote the new time
//
// Past the end of the series it fails with domain.ErrUnknownTimestamp and the
// portfolio keeps its previous clock.
func (s *MarketService) GetPriceAt(ctx context.Context, portfolioID uuid.UUID, at *int64) (*Quote, error) {
	if at != nil {
		if _, err := s.Store.Get(portfolioID); err != nil {
			return nil, err
		}
		price, err := s.Prices.Lookup(*at)
		if err != nil {
			return nil, fmt.Errorf("failed to get price at %d: %w", *at, err)
		}
		return &Quote{Time: *at, Price: price, Interval: s.Prices.Interval()}, nil
	}

	var quote Quote
	_, err := s.Store.Mutate(portfolioID, func(p *domain.Portfolio) error {
		next := domain.NextTime(p.CurrentTime, s.Prices.Interval())

		price, err := s.Prices.Lookup(next)
		if err != nil {
			return fmt.Errorf("failed to advance portfolio %s: %w", p.ID, err)
		}

		p.CurrentTime = next
		if err := s.Valuation.Revalue(p); err != nil {
			return err
		}

		if err := s.OrderLog.SaveState(ctx, *p); err != nil {
			s.Logger.Warn("failed to save portfolio state",
				zap.String("portfolio_id", p.ID.String()),
				zap.Error(err))
		}

		quote = Quote{Time: next, Price: price, Interval: s.Prices.Interval()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &quote, nil
}
