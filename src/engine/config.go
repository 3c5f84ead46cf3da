package engine

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Asset          string `envconfig:"SETTLEMENT_ASSET" default:"USDT"`
	UserID         string `envconfig:"USER_ID" default:"local"`
	OpeningBalance string `envconfig:"OPENING_BALANCE" default:"10000"`

	// Open-time profit percentage: base + minutes * per-minute
	// (+ leverage * leverage rate for futures).
	BaseProfitPct      float64 `envconfig:"BASE_PROFIT_PCT" default:"5"`
	PerMinuteProfitPct float64 `envconfig:"PER_MINUTE_PROFIT_PCT" default:"0.5"`
	LeverageProfitPct  float64 `envconfig:"LEVERAGE_PROFIT_PCT" default:"0.25"`

	DefaultBinaryPayoutPct float64 `envconfig:"BINARY_PAYOUT_PCT" default:"80"`
	DefaultDurationSeconds int64   `envconfig:"DEFAULT_DURATION_SECONDS" default:"300"`

	// Probability model for quant/bot/staking/strategy settlements.
	QuantWinRate      float64 `envconfig:"QUANT_WIN_RATE" default:"0.7"`
	QuantMinProfitPct float64 `envconfig:"QUANT_MIN_PROFIT_PCT" default:"2"`
	QuantMaxProfitPct float64 `envconfig:"QUANT_MAX_PROFIT_PCT" default:"12"`
	QuantMinLossPct   float64 `envconfig:"QUANT_MIN_LOSS_PCT" default:"10"`
	QuantMaxLossPct   float64 `envconfig:"QUANT_MAX_LOSS_PCT" default:"60"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
