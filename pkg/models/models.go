package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	Author    string
	Category  string `gorm:"size:20;not null"`
	Available bool   `gorm:"not null"`
	Quantity  int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PatronRecord struct {
	ID        uint   `gorm:"primaryKey"`
	PatronUid string `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"size:80;not null"`
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type LoanRecord struct {
	ID         uint   `gorm:"primaryKey"`
	LoanUid    string `gorm:"type:uuid;uniqueIndex;not null"`
	ItemKey    string `gorm:"index"` // empty for legacy rows without an item
	PatronUid  string `gorm:"not null;index"`
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type FineRecord struct {
	ID          uint            `gorm:"primaryKey"`
	FineUid     string          `gorm:"type:uuid;uniqueIndex;not null"`
	PatronUid   string          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric"`
	Paid        bool            `gorm:"not null"`
	CreatedDate time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AdminRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:80;uniqueIndex;not null"`
	Name         string
	PasswordHash []byte `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
