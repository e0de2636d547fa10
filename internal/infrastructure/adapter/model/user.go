package model

import (
	"time"
)

// User represents the database model for users
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	FirstName    string    `gorm:"not null;size:100"`
	LastName     string    `gorm:"not null;size:100"`
	UserName     string    `gorm:"uniqueIndex;not null;size:100"`
	PasswordHash string    `gorm:"not null;size:64"` // SHA-256 hex digest, never clear text
	Balance      int64     `gorm:"not null"`         // Cash balance in cents
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
