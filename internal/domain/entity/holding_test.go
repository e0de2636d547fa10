package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
)

func TestNewHolding(t *testing.T) {
	tp := newStubTime()

	t.Run("Valid holding", func(t *testing.T) {
		h, err := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(2), tp)
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), h.UserID)
		assert.Equal(t, "AAPL", h.Symbol)
		assert.Equal(t, "Apple", h.Name)
		assert.Equal(t, "2", h.Quantity.String())
	})

	t.Run("Empty symbol rejected", func(t *testing.T) {
		_, err := NewHolding(1, "  ", "Apple", decimal.NewFromInt(2), tp)
		assert.ErrorIs(t, err, errs.ErrInvalidSymbol)
	})

	t.Run("Zero quantity rejected", func(t *testing.T) {
		_, err := NewHolding(1, "AAPL", "Apple", decimal.Zero, tp)
		assert.ErrorIs(t, err, errs.ErrInvalidQuantity)
	})

	t.Run("Negative quantity rejected", func(t *testing.T) {
		_, err := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(-1), tp)
		assert.ErrorIs(t, err, errs.ErrInvalidQuantity)
	})
}

func TestHoldingAddShares(t *testing.T) {
	tp := newStubTime()

	t.Run("Accumulates quantity", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(2), tp)
		err := h.AddShares(decimal.RequireFromString("0.5"), tp)
		assert.NoError(t, err)
		assert.Equal(t, "2.5", h.Quantity.String())
	})

	t.Run("Keeps the first-buy display name", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(2), tp)
		_ = h.AddShares(decimal.NewFromInt(1), tp)
		assert.Equal(t, "Apple", h.Name)
	})

	t.Run("Non-positive quantity rejected", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(2), tp)
		assert.ErrorIs(t, h.AddShares(decimal.Zero, tp), errs.ErrInvalidQuantity)
		assert.Equal(t, "2", h.Quantity.String())
	})
}

func TestHoldingRemoveShares(t *testing.T) {
	tp := newStubTime()

	t.Run("Partial sale", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(5), tp)
		err := h.RemoveShares(decimal.NewFromInt(3), tp)
		assert.NoError(t, err)
		assert.Equal(t, "2", h.Quantity.String())
		assert.False(t, h.IsEmpty())
	})

	t.Run("Full sale empties the holding", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(5), tp)
		err := h.RemoveShares(decimal.NewFromInt(5), tp)
		assert.NoError(t, err)
		assert.True(t, h.IsEmpty())
	})

	t.Run("Oversell rejected and quantity unchanged", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.NewFromInt(3), tp)
		err := h.RemoveShares(decimal.NewFromInt(5), tp)
		assert.ErrorIs(t, err, errs.ErrInsufficientHoldings)
		assert.Equal(t, "3", h.Quantity.String())
	})

	t.Run("Fractional full sale", func(t *testing.T) {
		h, _ := NewHolding(1, "AAPL", "Apple", decimal.RequireFromString("2.5"), tp)
		err := h.RemoveShares(decimal.RequireFromString("2.5"), tp)
		assert.NoError(t, err)
		assert.True(t, h.IsEmpty())
	})
}
