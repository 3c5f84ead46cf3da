package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InstrumentSpot     = "spot"
	InstrumentFutures  = "futures"
	InstrumentOptions  = "options"
	InstrumentBinary   = "binary"
	InstrumentQuant    = "quant"
	InstrumentBot      = "bot"
	InstrumentStaking  = "staking"
	InstrumentStrategy = "strategy"
)

const (
	PositionStatusPendingOrder    = "pending_order"
	PositionStatusOpen            = "open"
	PositionStatusSettling        = "settling"
	PositionStatusWon             = "won"
	PositionStatusLost            = "lost"
	PositionStatusCancelled       = "cancelled"
	PositionStatusAdminOverridden = "admin_overridden"
)

const (
	DirectionBuy    = "buy"
	DirectionSell   = "sell"
	DirectionLong   = "long"
	DirectionShort  = "short"
	DirectionHigher = "higher"
	DirectionLower  = "lower"
)

const (
	TriggerTypeLimit = "limit"
	TriggerTypeStop  = "stop"
)

const (
	OptionLongCall       = "long_call"
	OptionLongPut        = "long_put"
	OptionCoveredCall    = "covered_call"
	OptionCashSecuredPut = "cash_secured_put"
)

const (
	ExitReasonTimer      = "timer"
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonAdmin      = "admin"
	ExitReasonCancelled  = "cancelled"
)

// Position is a speculative stake created from a TradeRequest. It is owned by
// the engine: status moves open -> {won, lost, cancelled, admin_overridden}
// exactly once, guarded by compare-and-set updates in the repository.
type Position struct {
	ID              string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string              `gorm:"type:varchar(60);index" json:"user_id"`
	InstrumentType  string              `gorm:"type:varchar(20);not null;index" json:"instrument_type"`
	Direction       string              `gorm:"type:varchar(10)" json:"direction"`
	Symbol          string              `gorm:"type:varchar(50);not null" json:"symbol"`
	Amount          decimal.Decimal     `gorm:"type:double precision;not null" json:"amount"`
	EntryPrice      decimal.Decimal     `gorm:"type:double precision" json:"entry_price"`
	ExitPrice       decimal.NullDecimal `gorm:"type:double precision" json:"exit_price,omitempty"`
	ReservedFunds   decimal.Decimal     `gorm:"type:double precision" json:"reserved_funds"`
	Leverage        decimal.Decimal     `gorm:"type:double precision" json:"leverage"`
	ProfitPct       decimal.Decimal     `gorm:"type:double precision" json:"profit_pct"`
	PayoutRate      decimal.Decimal     `gorm:"type:double precision" json:"payout_rate"`
	Payout          decimal.NullDecimal `gorm:"type:double precision" json:"payout,omitempty"`
	OptionType      string              `gorm:"type:varchar(20)" json:"option_type,omitempty"`
	StopLoss        decimal.NullDecimal `gorm:"type:double precision" json:"stop_loss,omitempty"`
	TakeProfit      decimal.NullDecimal `gorm:"type:double precision" json:"take_profit,omitempty"`
	TriggerType     string              `gorm:"type:varchar(10)" json:"trigger_type,omitempty"`
	TriggerPrice    decimal.NullDecimal `gorm:"type:double precision" json:"trigger_price,omitempty"`
	DurationSeconds int64               `json:"duration_seconds"`
	BotID           string              `gorm:"type:varchar(60)" json:"bot_id,omitempty"`
	PoolID          string              `gorm:"type:varchar(60)" json:"pool_id,omitempty"`
	ExitReason      string              `gorm:"type:varchar(20)" json:"exit_reason,omitempty"`
	Status          string              `gorm:"size:50;not null;default:open;index" json:"status"`
	OpenedAt        time.Time           `json:"opened_at"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty"`
	SettledAt       *time.Time          `json:"settled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// IsTerminal reports whether the position has reached a final state and must
// never be evaluated again.
func (p *Position) IsTerminal() bool {
	switch p.Status {
	case PositionStatusWon, PositionStatusLost, PositionStatusCancelled, PositionStatusAdminOverridden:
		return true
	}
	return false
}

// Expired reports whether the expiry timer has fired at the given instant.
// Positions without an expiry never expire.
func (p *Position) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}
