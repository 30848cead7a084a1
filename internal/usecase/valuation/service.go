package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/replay-broker/internal/domain"
)

// PriceLookup is the part of the price series the valuation needs
type PriceLookup interface {
	Lookup(ts int64) (decimal.Decimal, error)
}

// ValuationService recomputes mark-to-market values
type ValuationService struct {
	Prices PriceLookup
}

// NewValuationService creates a new ValuationService instance
func NewValuationService(prices PriceLookup) *ValuationService {
	return &ValuationService{
		Prices: prices,
	}
}

// Revalue sets the portfolio value at its current simulated time
// Logic: Value = BaseAssetTotal * price(CurrentTime) + QuoteAssetTotal
// Fails with domain.ErrUnknownTimestamp when the clock ran past the series,
// in which case the portfolio is left untouched.
func (s *ValuationService) Revalue(p *domain.Portfolio) error {
	price, err := s.Prices.Lookup(p.CurrentTime)
	if err != nil {
		return fmt.Errorf("failed to value portfolio %s: %w", p.ID, err)
	}

	p.Value = p.BaseAssetTotal.Mul(price).Add(p.QuoteAssetTotal)
	return nil
}
