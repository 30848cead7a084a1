package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio represents one simulated trading client.
// BaseAssetTotal is the traded asset (e.g. BTC), QuoteAssetTotal the cash side (e.g. EUR).
// Balances may go negative: no sufficiency check is performed on orders.
type Portfolio struct {
	ID              uuid.UUID
	BaseAssetTotal  decimal.Decimal
	QuoteAssetTotal decimal.Decimal
	Value           decimal.Decimal // Derived: BaseAssetTotal*price(CurrentTime) + QuoteAssetTotal
	CurrentTime     int64           // Private simulated clock, only moved by NextTime
	StoragePath     string          // Location of the durable order log
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if p.ID == uuid.Nil {
		return errors.New("portfolio ID cannot be empty")
	}
	if p.StoragePath == "" {
		return errors.New("portfolio storage path cannot be empty")
	}
	return nil
}

// ParseAmount parses a textual order size or balance.
// Empty, non-numeric, NaN and infinite inputs fail with ErrInvalidAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return amount, nil
}
