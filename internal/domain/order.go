package domain

import "github.com/shopspring/decimal"

// OrderKind represents the side of a market order
type OrderKind string

const (
	OrderKindBuy  OrderKind = "buy"
	OrderKindSell OrderKind = "sell"
)

// OrderRecord is an immutable entry of a portfolio's order log.
// Time and Price are the execution time and price (before the clock advance),
// Portfolio is the state right after execution.
type OrderRecord struct {
	Kind      OrderKind
	Total     decimal.Decimal // Quote units for buys, base units for sells
	Time      int64
	Price     decimal.Decimal
	Portfolio Portfolio
}
