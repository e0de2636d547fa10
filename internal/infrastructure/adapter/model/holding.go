package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents the database model for stock holdings.
// The composite unique index keeps at most one row per (user, symbol) pair.
type Holding struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	UserID      uint64          `gorm:"not null;index;uniqueIndex:idx_holdings_user_symbol"`
	StockSymbol string          `gorm:"not null;size:32;uniqueIndex:idx_holdings_user_symbol"`
	StockName   string          `gorm:"size:255"`
	Quantity    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`

	// Define relationships
	User User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Holding
func (Holding) TableName() string {
	return "holdings"
}
