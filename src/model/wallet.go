package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the available balance for one settlement asset. All
// reservations and credits mutate this single row through the ledger.
type Wallet struct {
	Asset     string          `gorm:"type:varchar(20);primaryKey" json:"asset"`
	Available decimal.Decimal `gorm:"type:double precision;not null" json:"available"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
