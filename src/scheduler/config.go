package scheduler

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TickPeriod      time.Duration `envconfig:"TICK_PERIOD" default:"1s"`
	CleanupPeriod   time.Duration `envconfig:"CLEANUP_PERIOD" default:"1h"`
	RetentionDays   int           `envconfig:"HISTORY_RETENTION_DAYS" default:"7"`
	StaleClaimGrace time.Duration `envconfig:"STALE_CLAIM_GRACE" default:"1m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
