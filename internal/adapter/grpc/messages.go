package grpc

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/replay-broker/internal/domain"
)

// Message field names. Decimals travel as strings, timestamps as numbers.
const (
	fieldID        = "id"
	fieldIDs       = "ids"
	fieldBase      = "base"
	fieldQuote     = "quote"
	fieldTotal     = "total"
	fieldTime      = "time"
	fieldPrice     = "price"
	fieldInterval  = "interval"
	fieldPortfolio = "portfolio"
	fieldOrders    = "orders"
	fieldType      = "type"

	fieldBaseAssetTotal  = "baseAssetTotal"
	fieldQuoteAssetTotal = "quoteAssetTotal"
	fieldValue           = "value"
	fieldCurrentTime     = "currentTime"
	fieldPath            = "path"
)

// maxExactInteger is the largest integer a float64 number value carries exactly
const maxExactInteger = 1 << 53

// portfolioToMap converts a domain Portfolio to its wire representation
func portfolioToMap(p domain.Portfolio) map[string]any {
	return map[string]any{
		fieldID:              p.ID.String(),
		fieldBaseAssetTotal:  p.BaseAssetTotal.String(),
		fieldQuoteAssetTotal: p.QuoteAssetTotal.String(),
		fieldValue:           p.Value.String(),
		fieldCurrentTime:     p.CurrentTime,
		fieldPath:            p.StoragePath,
	}
}

// orderToMap converts a domain OrderRecord to its wire representation
func orderToMap(r domain.OrderRecord) map[string]any {
	return map[string]any{
		fieldType:      string(r.Kind),
		fieldTotal:     r.Total.String(),
		fieldTime:      r.Time,
		fieldPrice:     r.Price.String(),
		fieldPortfolio: portfolioToMap(r.Portfolio),
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return s, nil
}

// requireID reads a portfolio identifier field
func requireID(s *structpb.Struct, key string) (uuid.UUID, error) {
	raw := s.GetFields()[key].GetStringValue()
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format: %v", key, err)
	}
	return id, nil
}

// requireAmount reads a decimal field sent as a string
func requireAmount(s *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s is required", domain.ErrInvalidAmount, key)
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return decimal.Zero, fmt.Errorf("%w: %s must be a decimal string", domain.ErrInvalidAmount, key)
	}
	return domain.ParseAmount(v.GetStringValue())
}

// optionalTimestamp reads an integer timestamp field, nil when absent or null
func optionalTimestamp(s *structpb.Struct, key string) (*int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > maxExactInteger {
			return nil, fmt.Errorf("%s must be an integer timestamp", key)
		}
		ts := int64(n)
		return &ts, nil
	default:
		return nil, fmt.Errorf("%s must be a number", key)
	}
}

// requireTimestamp reads an integer timestamp that must be present
func requireTimestamp(s *structpb.Struct, key string) (int64, error) {
	ts, err := optionalTimestamp(s, key)
	if err != nil {
		return 0, err
	}
	if ts == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	return *ts, nil
}

func decimalField(s *structpb.Struct, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s.GetFields()[key].GetStringValue())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// portfolioFromStruct decodes the wire representation of a portfolio
func portfolioFromStruct(s *structpb.Struct) (domain.Portfolio, error) {
	if s == nil {
		return domain.Portfolio{}, fmt.Errorf("%s is missing", fieldPortfolio)
	}

	id, err := requireID(s, fieldID)
	if err != nil {
		return domain.Portfolio{}, err
	}

	p := domain.Portfolio{
		ID:          id,
		StoragePath: s.GetFields()[fieldPath].GetStringValue(),
	}
	if p.BaseAssetTotal, err = decimalField(s, fieldBaseAssetTotal); err != nil {
		return domain.Portfolio{}, err
	}
	if p.QuoteAssetTotal, err = decimalField(s, fieldQuoteAssetTotal); err != nil {
		return domain.Portfolio{}, err
	}
	if p.Value, err = decimalField(s, fieldValue); err != nil {
		return domain.Portfolio{}, err
	}
	if p.CurrentTime, err = requireTimestamp(s, fieldCurrentTime); err != nil {
		return domain.Portfolio{}, err
	}
	return p, nil
}

// orderFromStruct decodes the wire representation of an order record
func orderFromStruct(s *structpb.Struct) (domain.OrderRecord, error) {
	var (
		r   domain.OrderRecord
		err error
	)
	r.Kind = domain.OrderKind(s.GetFields()[fieldType].GetStringValue())
	if r.Total, err = decimalField(s, fieldTotal); err != nil {
		return domain.OrderRecord{}, err
	}
	if r.Price, err = decimalField(s, fieldPrice); err != nil {
		return domain.OrderRecord{}, err
	}
	if r.Time, err = requireTimestamp(s, fieldTime); err != nil {
		return domain.OrderRecord{}, err
	}
	if r.Portfolio, err = portfolioFromStruct(s.GetFields()[fieldPortfolio].GetStructValue()); err != nil {
		return domain.OrderRecord{}, err
	}
	return r, nil
}
