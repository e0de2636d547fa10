package entity

import (
	"github.com/shopspring/decimal"
)

// TradeSide identifies the direction of a trade
type TradeSide string

const (
	// TradeSideBuy is a purchase of shares for cash
	TradeSideBuy TradeSide = "BUY"
	// TradeSideSell is a sale of shares for cash
	TradeSideSell TradeSide = "SELL"
)

// TradeResult carries the post-trade state returned to the caller.
// Quantity is the resulting holding quantity (zero when the sell closed
// the position) and Balance the resulting cash balance in cents.
type TradeResult struct {
	UserID   uint64
	Symbol   string
	Side     TradeSide
	Quantity decimal.Decimal
	Balance  int64
}

// GetBalance returns the resulting cash balance as a string with 2 decimal places
func (r *TradeResult) GetBalance() string {
	return AmountInCentsToString(r.Balance)
}
