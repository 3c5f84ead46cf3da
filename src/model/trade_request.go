package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TradeRequest is the immutable input to the trade router. Optional numeric
// fields are pointers so that "absent" and "zero" stay distinguishable on the
// wire.
type TradeRequest struct {
	InstrumentType  string           `json:"instrument_type"`
	Action          string           `json:"action"`
	Symbol          string           `json:"symbol"`
	Amount          decimal.Decimal  `json:"amount"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Leverage        *decimal.Decimal `json:"leverage,omitempty"`
	DurationSeconds int64            `json:"duration_seconds,omitempty"`
	ExpirySeconds   int64            `json:"expiry_seconds,omitempty"`
	Direction       string           `json:"direction,omitempty"`
	StopLoss        *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit      *decimal.Decimal `json:"take_profit,omitempty"`
	PayoutRate      *decimal.Decimal `json:"payout_rate,omitempty"`
	OptionType      string           `json:"option_type,omitempty"`
	TriggerType     string           `json:"trigger_type,omitempty"`
	TriggerPrice    *decimal.Decimal `json:"trigger_price,omitempty"`
	BotID           string           `json:"bot_id,omitempty"`
	PoolID          string           `json:"pool_id,omitempty"`
}

// Normalize lower-cases the enum-like fields so comparisons downstream can be
// exact.
func (r *TradeRequest) Normalize() {
	r.InstrumentType = strings.ToLower(strings.TrimSpace(r.InstrumentType))
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	r.Direction = strings.ToLower(strings.TrimSpace(r.Direction))
	r.OptionType = strings.ToLower(strings.TrimSpace(r.OptionType))
	r.TriggerType = strings.ToLower(strings.TrimSpace(r.TriggerType))
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
}

// Duration returns the effective lifetime of the position in seconds. Binary
// trades historically send expiry_seconds instead of duration_seconds.
func (r *TradeRequest) Duration() int64 {
	if r.DurationSeconds > 0 {
		return r.DurationSeconds
	}
	return r.ExpirySeconds
}
