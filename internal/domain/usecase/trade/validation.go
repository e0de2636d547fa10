package trade

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
)

// BuyRequest represents a request to purchase shares
type BuyRequest struct {
	UserID    uint64
	Symbol    string
	ShareName string // Display label, only honored on a first purchase
	Quantity  string
	Price     string // Per-share price
}

// SellRequest represents a request to sell shares
type SellRequest struct {
	UserID   uint64
	Symbol   string
	Quantity string
	Price    string // Per-share price
}

// validatedTrade holds the parsed trade parameters
type validatedTrade struct {
	symbol     string
	quantity   decimal.Decimal
	priceCents int64
}

// validateTrade checks the fields shared by buys and sells
func validateTrade(userID uint64, symbol, quantity, price string) (*validatedTrade, error) {
	if userID == 0 {
		return nil, errs.ErrInvalidUserID
	}

	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errs.ErrInvalidSymbol
	}

	q, err := entity.ParseQuantity(quantity)
	if err != nil {
		return nil, err
	}

	p, err := entity.ParsePrice(price)
	if err != nil {
		return nil, err
	}

	return &validatedTrade{
		symbol:     symbol,
		quantity:   q,
		priceCents: p,
	}, nil
}
