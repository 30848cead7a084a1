package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PricePoint is a single close price sample of the replayed instrument
type PricePoint struct {
	Time  int64 // milliseconds since UNIX epoch
	Price decimal.Decimal
}

// PriceSeries is the immutable, time-ordered table of historical prices.
// It is loaded once and shared read-only by every portfolio.
type PriceSeries struct {
	points   []PricePoint
	byTime   map[int64]decimal.Decimal
	interval int64
}

// LoadPriceSeries builds a PriceSeries from raw (timestamp, price) rows
// Rules:
//   - every row must parse as (integer, decimal)
//   - timestamps must be strictly increasing
//   - the gap between consecutive timestamps must be constant
//   - at least two rows are required so the interval is defined
//
// Any violation fails with ErrMalformedInput.
func LoadPriceSeries(rows [][]string) (*PriceSeries, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", ErrMalformedInput, len(rows))
	}

	points := make([]PricePoint, 0, len(rows))
	byTime := make(map[int64]decimal.Decimal, len(rows))

	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: row %d has %d fields", ErrMalformedInput, i, len(row))
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d timestamp %q: %v", ErrMalformedInput, i, row[0], err)
		}

		price, err := decimal.NewFromString(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d price %q: %v", ErrMalformedInput, i, row[1], err)
		}

		if i > 0 && ts <= points[i-1].Time {
			return nil, fmt.Errorf("%w: row %d timestamp %d is not after %d", ErrMalformedInput, i, ts, points[i-1].Time)
		}

		points = append(points, PricePoint{Time: ts, Price: price})
		byTime[ts] = price
	}

	interval := points[1].Time - points[0].Time
	for i := 2; i < len(points); i++ {
		if gap := points[i].Time - points[i-1].Time; gap != interval {
			return nil, fmt.Errorf("%w: row %d interval %d differs from %d", ErrMalformedInput, i, gap, interval)
		}
	}

	return &PriceSeries{
		points:   points,
		byTime:   byTime,
		interval: interval,
	}, nil
}

// Lookup returns the price sampled exactly at ts.
// It never interpolates: unknown timestamps fail with ErrUnknownTimestamp.
func (s *PriceSeries) Lookup(ts int64) (decimal.Decimal, error) {
	price, ok := s.byTime[ts]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrUnknownTimestamp, ts)
	}
	return price, nil
}

// FirstTimestamp returns the timestamp every new portfolio clock starts at
func (s *PriceSeries) FirstTimestamp() int64 {
	return s.points[0].Time
}

// Interval returns the fixed gap between consecutive samples
func (s *PriceSeries) Interval() int64 {
	return s.interval
}

// First returns the first sample of the series
func (s *PriceSeries) First() PricePoint {
	return s.points[0]
}

// Last returns the last sample of the series
func (s *PriceSeries) Last() PricePoint {
	return s.points[len(s.points)-1]
}

// Len returns the number of samples
func (s *PriceSeries) Len() int {
	return len(s.points)
}
