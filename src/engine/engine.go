package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradeengine/src/ledger"
	"tradeengine/src/notify"
	"tradeengine/src/outcome"
	"tradeengine/src/pricing"
	"tradeengine/src/repository"
)

// Engine owns the trade lifecycle: it validates requests, reserves funds,
// creates positions and drives them to settlement. The scheduler and the
// HTTP handlers both go through it; every status transition it makes is a
// compare-and-set in the position repository.
type Engine struct {
	positions *repository.PositionRepository
	ledger    ledger.Ledger
	prices    pricing.Source
	calc      *outcome.Calculator
	emitter   *notify.Emitter
	config    Config
	now       func() time.Time

	profitParams outcome.ProfitParams
}

// New wires an engine from its collaborators.
func New(
	positions *repository.PositionRepository,
	balance ledger.Ledger,
	prices pricing.Source,
	calc *outcome.Calculator,
	emitter *notify.Emitter,
	config Config,
) *Engine {
	return &Engine{
		positions: positions,
		ledger:    balance,
		prices:    prices,
		calc:      calc,
		emitter:   emitter,
		config:    config,
		now:       time.Now,
		profitParams: outcome.ProfitParams{
			BasePct:      decimal.NewFromFloat(config.BaseProfitPct),
			PerMinutePct: decimal.NewFromFloat(config.PerMinuteProfitPct),
			LeveragePct:  decimal.NewFromFloat(config.LeverageProfitPct),
		},
	}
}

// WithClock overrides the engine's time source. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Positions exposes the repository for read paths (handlers, scheduler).
func (e *Engine) Positions() *repository.PositionRepository {
	return e.positions
}

// Statistics aggregates win/loss counts and net profit over settled
// positions, optionally filtered by instrument type.
func (e *Engine) Statistics(ctx context.Context, instrumentType string) (repository.Statistics, error) {
	return e.positions.AggregateStatistics(ctx, instrumentType)
}
