package filesystem

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/replay-broker/internal/domain"
)

// portfolioDocument is the on-disk shape of a portfolio
type portfolioDocument struct {
	ID              string          `json:"id"`
	BaseAssetTotal  decimal.Decimal `json:"baseAssetTotal"`
	QuoteAssetTotal decimal.Decimal `json:"quoteAssetTotal"`
	Value           decimal.Decimal `json:"value"`
	CurrentTime     int64           `json:"currentTime"`
	Path            string          `json:"path"`
}

// orderDocument is the on-disk shape of an order record
type orderDocument struct {
	Type      string            `json:"type"`
	Total     decimal.Decimal   `json:"total"`
	Time      int64             `json:"time"`
	Price     decimal.Decimal   `json:"price"`
	Portfolio portfolioDocument `json:"portfolio"`
}

// orderLogDocument is the content of orders.json
type orderLogDocument struct {
	Orders []orderDocument `json:"orders"`
}

func toPortfolioDocument(p domain.Portfolio) portfolioDocument {
	return portfolioDocument{
		ID:              p.ID.String(),
		BaseAssetTotal:  p.BaseAssetTotal,
		QuoteAssetTotal: p.QuoteAssetTotal,
		Value:           p.Value,
		CurrentTime:     p.CurrentTime,
		Path:            p.StoragePath,
	}
}

func (d portfolioDocument) toDomain() (domain.Portfolio, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("invalid portfolio id %q: %w", d.ID, err)
	}
	return domain.Portfolio{
		ID:              id,
		BaseAssetTotal:  d.BaseAssetTotal,
		QuoteAssetTotal: d.QuoteAssetTotal,
		Value:           d.Value,
		CurrentTime:     d.CurrentTime,
		StoragePath:     d.Path,
	}, nil
}

func toOrderDocument(r domain.OrderRecord) orderDocument {
	return orderDocument{
		Type:      string(r.Kind),
		Total:     r.Total,
		Time:      r.Time,
		Price:     r.Price,
		Portfolio: toPortfolioDocument(r.Portfolio),
	}
}

func (d orderDocument) toDomain() (domain.OrderRecord, error) {
	p, err := d.Portfolio.toDomain()
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return domain.OrderRecord{
		Kind:      domain.OrderKind(d.Type),
		Total:     d.Total,
		Time:      d.Time,
		Price:     d.Price,
		Portfolio: p,
	}, nil
}
