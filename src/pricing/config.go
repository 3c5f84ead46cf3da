package pricing

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 250 * time.Millisecond
	defaultRetryMaxBackoff = 2 * time.Second
)

type Config struct {
	Source      string        `envconfig:"PRICE_SOURCE" default:"rest"` // "rest" or "binance"
	BaseURL     string        `envconfig:"PRICE_BASE_URL" default:"https://api.binance.com"`
	QuotePath   string        `envconfig:"PRICE_QUOTE_PATH" default:"/api/v3/ticker/price"`
	HTTPTimeout time.Duration `envconfig:"PRICE_HTTP_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
