package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/simaogato/replay-broker/internal/usecase/valuation"
)

// ErrZeroPrice is returned when a buy would divide by a zero execution price
var ErrZeroPrice = errors.New("execution price is zero")

// PriceSeries is the part of the price series the execution needs
type PriceSeries interface {
	Lookup(ts int64) (decimal.Decimal, error)
	Interval() int64
}

// ExecutionService fills market orders against the replayed price series
type ExecutionService struct {
	Store     domain.PortfolioStore
	Prices    PriceSeries
	Valuation *valuation.ValuationService
	OrderLog  domain.OrderLog
	Logger    *zap.Logger
}

// NewExecutionService creates a new ExecutionService instance
func NewExecutionService(
	store domain.PortfolioStore,
	prices PriceSeries,
	valuationService *valuation.ValuationService,
	orderLog domain.OrderLog,
	logger *zap.Logger,
) *ExecutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionService{
		Store:     store,
		Prices:    prices,
		Valuation: valuationService,
		OrderLog:  orderLog,
		Logger:    logger,
	}
}

// ExecuteBuy spends total units of the quote asset at the current price
func (s *ExecutionService) ExecuteBuy(ctx context.Context, portfolioID uuid.UUID, total decimal.Decimal) (*domain.Portfolio, error) {
	return s.execute(ctx, portfolioID, domain.OrderKindBuy, total)
}

// ExecuteSell sells total units of the base asset at the current price.
// Note the unit asymmetry with ExecuteBuy: a sell total is in base units.
func (s *ExecutionService) ExecuteSell(ctx context.Context, portfolioID uuid.UUID, total decimal.Decimal) (*domain.Portfolio, error) {
	return s.execute(ctx, portfolioID, domain.OrderKindSell, total)
}

// execute runs one order under the portfolio's exclusive lock
// Logic:
//  1. Resolve the execution price at the portfolio's current simulated time
//  2. Apply the balance change (no sufficiency check)
//  3. Advance the clock by one interval and revalue
//  4. Durably append the order record
//
// Any failure leaves the stored portfolio unchanged.
func (s *ExecutionService) execute(ctx context.Context, portfolioID uuid.UUID, kind domain.OrderKind, total decimal.Decimal) (*domain.Portfolio, error) {
	updated, err := s.Store.Mutate(portfolioID, func(p *domain.Portfolio) error {
		execTime := p.CurrentTime

		price, err := s.Prices.Lookup(execTime)
		if err != nil {
			return fmt.Errorf("failed to price %s order: %w", kind, err)
		}

		switch kind {
		case domain.OrderKindBuy:
			if price.IsZero() {
				return fmt.Errorf("%w at %d", ErrZeroPrice, execTime)
			}
			p.QuoteAssetTotal = p.QuoteAssetTotal.Sub(total)
			p.BaseAssetTotal = p.BaseAssetTotal.Add(total.Div(price))
		case domain.OrderKindSell:
			p.BaseAssetTotal = p.BaseAssetTotal.Sub(total)
			p.QuoteAssetTotal = p.QuoteAssetTotal.Add(total.Mul(price))
		default:
			return fmt.Errorf("unknown order kind %q", kind)
		}

		p.CurrentTime = domain.NextTime(p.CurrentTime, s.Prices.Interval())
		if err := s.Valuation.Revalue(p); err != nil {
			return err
		}

		record := domain.OrderRecord{
			Kind:      kind,
			Total:     total,
			Time:      execTime,
			Price:     price,
			Portfolio: *p,
		}
		if err := s.OrderLog.Append(ctx, *p, record); err != nil {
			return fmt.Errorf("failed to log %s order: %w", kind, err)
		}

		// The order log is authoritative; the state file is a convenience copy
		if err := s.OrderLog.SaveState(ctx, *p); err != nil {
			s.Logger.Warn("failed to save portfolio state",
				zap.String("portfolio_id", p.ID.String()),
				zap.Error(err))
		}

		s.Logger.Debug("order executed",
			zap.String("portfolio_id", p.ID.String()),
			zap.String("kind", string(kind)),
			zap.String("total", total.String()),
			zap.String("price", price.String()),
			zap.Int64("time", execTime))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}
