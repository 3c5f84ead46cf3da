package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the last reference price seen for a symbol. It survives restarts
// so overdue positions can settle immediately on load.
type Quote struct {
	Symbol    string          `gorm:"type:varchar(50);primaryKey" json:"symbol"`
	Price     decimal.Decimal `gorm:"type:double precision;not null" json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Quote) TableName() string {
	return "quotes"
}
