package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
)

// Holding represents a user's owned quantity of one stock symbol.
// There is at most one holding per (user, symbol) pair.
type Holding struct {
	ID        uint64          // Unique identifier, assigned by the store
	UserID    uint64          // Owning user
	Symbol    string          // Stock symbol, e.g. "AAPL"
	Name      string          // Display name, fixed at first purchase
	Quantity  decimal.Decimal // Shares held, always positive while the row exists
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewHolding creates a holding for a user's first purchase of a symbol
func NewHolding(userID uint64, symbol, name string, quantity decimal.Decimal, timeProvider coreport.TimeProvider) (*Holding, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errs.ErrInvalidSymbol
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: must be greater than zero", errs.ErrInvalidQuantity)
	}

	now := timeProvider.Now()
	return &Holding{
		UserID:    userID,
		Symbol:    symbol,
		Name:      strings.TrimSpace(name),
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddShares increases the held quantity by a further purchase.
// The display name is left unchanged on purpose: it is fixed at first buy.
func (h *Holding) AddShares(quantity decimal.Decimal, timeProvider coreport.TimeProvider) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", errs.ErrInvalidQuantity)
	}
	h.Quantity = h.Quantity.Add(quantity)
	h.UpdatedAt = timeProvider.Now()
	return nil
}

// RemoveShares decreases the held quantity by a sale.
// Returns error when the holding has fewer shares than requested.
func (h *Holding) RemoveShares(quantity decimal.Decimal, timeProvider coreport.TimeProvider) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", errs.ErrInvalidQuantity)
	}
	if h.Quantity.LessThan(quantity) {
		return errs.ErrInsufficientHoldings
	}
	h.Quantity = h.Quantity.Sub(quantity)
	h.UpdatedAt = timeProvider.Now()
	return nil
}

// IsEmpty reports whether the holding has no shares left.
// Empty holdings must not persist as rows.
func (h *Holding) IsEmpty() bool {
	return h.Quantity.IsZero()
}
