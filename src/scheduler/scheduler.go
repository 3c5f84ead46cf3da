package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/engine"
	"tradeengine/src/model"
	"tradeengine/src/pricing"
	"tradeengine/src/repository"
)

// Scheduler drives settlement: one recurring tick scans every non-terminal
// position, fires pending-order triggers, checks take-profit and stop-loss,
// and settles expired positions. All instrument types share this single
// loop; there are no per-instrument timers.
type Scheduler struct {
	engine    *engine.Engine
	positions *repository.PositionRepository
	prices    pricing.Source
	config    Config
	now       func() time.Time
}

// New wires a scheduler.
func New(
	eng *engine.Engine,
	positions *repository.PositionRepository,
	prices pricing.Source,
	config Config,
) *Scheduler {
	return &Scheduler{
		engine:    eng,
		positions: positions,
		prices:    prices,
		config:    config,
		now:       time.Now,
	}
}

// WithClock overrides the scheduler's time source. Test hook.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run ticks until the context is cancelled. The first evaluation happens
// immediately, so positions that expired while the engine was down settle on
// startup rather than one period later.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickPeriod)
	defer ticker.Stop()

	cleanup := time.NewTicker(s.config.CleanupPeriod)
	defer cleanup.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("settlement loop stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		case <-cleanup.C:
			s.Cleanup(ctx)
		}
	}
}

// Tick evaluates every non-terminal position once. A failure on one
// position never stops the evaluation of the others.
func (s *Scheduler) Tick(ctx context.Context) {
	positions, err := s.positions.FindNonTerminal(ctx)
	if err != nil {
		logger.WithError(err).Error("tick: failed to load positions")
		return
	}

	prices := make(map[string]decimal.Decimal)

	for i := range positions {
		position := positions[i]
		if err := s.evaluate(ctx, &position, prices); err != nil {
			logger.WithError(err).WithField("position_id", position.ID).
				Error("tick: position evaluation failed")
		}
	}
}

// Cleanup prunes terminal positions older than the retention window.
func (s *Scheduler) Cleanup(ctx context.Context) {
	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	if _, err := s.positions.PruneTerminalBefore(ctx, cutoff); err != nil {
		logger.WithError(err).Error("cleanup: failed to prune position history")
	}
}

// evaluate runs the per-position decision ladder: trigger check, then
// take-profit, then stop-loss, then expiry. The first satisfied condition
// wins and the rest are skipped.
func (s *Scheduler) evaluate(ctx context.Context, position *model.Position, prices map[string]decimal.Decimal) error {
	switch position.Status {
	case model.PositionStatusSettling:
		return s.recoverStaleClaim(ctx, position)
	case model.PositionStatusPendingOrder:
		return s.checkTrigger(ctx, position, prices)
	case model.PositionStatusOpen:
		// fall through below
	default:
		return nil
	}

	if position.TakeProfit.Valid || position.StopLoss.Valid {
		price, err := s.price(ctx, position.Symbol, prices)
		if err == nil {
			if position.TakeProfit.Valid && takeProfitHit(position, price) {
				_, err := s.engine.SettleForced(ctx, position, true, price, model.ExitReasonTakeProfit)
				return err
			}
			if position.StopLoss.Valid && stopLossHit(position, price) {
				_, err := s.engine.SettleForced(ctx, position, false, price, model.ExitReasonStopLoss)
				return err
			}
		} else if !errors.Is(err, pricing.ErrPriceUnavailable) {
			return err
		}
	}

	if position.Expired(s.now()) {
		price, err := s.price(ctx, position.Symbol, prices)
		if err != nil {
			if errors.Is(err, pricing.ErrPriceUnavailable) {
				// No price has ever been seen for this symbol; retry on the
				// next tick rather than inventing an exit price.
				logger.WithField("symbol", position.Symbol).
					Warn("tick: no price for expired position, retrying next tick")
				return nil
			}
			return err
		}

		_, err = s.engine.SettleWithPrice(ctx, position, price, model.ExitReasonTimer)
		return err
	}

	return nil
}

// checkTrigger opens a pending limit/stop order once its trigger price is
// reached: limit fills at or below the trigger, stop at or above.
func (s *Scheduler) checkTrigger(ctx context.Context, position *model.Position, prices map[string]decimal.Decimal) error {
	if !position.TriggerPrice.Valid {
		return nil
	}

	price, err := s.price(ctx, position.Symbol, prices)
	if err != nil {
		if errors.Is(err, pricing.ErrPriceUnavailable) {
			return nil
		}
		return err
	}

	var triggered bool
	switch position.TriggerType {
	case model.TriggerTypeLimit:
		triggered = price.LessThanOrEqual(position.TriggerPrice.Decimal)
	case model.TriggerTypeStop:
		triggered = price.GreaterThanOrEqual(position.TriggerPrice.Decimal)
	}
	if !triggered {
		return nil
	}

	_, err = s.engine.OpenTriggered(ctx, position, price)
	return err
}

// recoverStaleClaim releases positions stuck in the settling state, e.g.
// after a crash between claim and commit.
func (s *Scheduler) recoverStaleClaim(ctx context.Context, position *model.Position) error {
	if s.now().Sub(position.UpdatedAt) < s.config.StaleClaimGrace {
		return nil
	}

	released, err := s.positions.Release(ctx, position.ID)
	if err != nil {
		return err
	}
	if released {
		logger.WithField("position_id", position.ID).
			Warn("released stale settlement claim")
	}
	return nil
}

// price fetches the symbol's price once per tick.
func (s *Scheduler) price(ctx context.Context, symbol string, prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	if cached, ok := prices[symbol]; ok {
		return cached, nil
	}

	price, err := s.prices.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	prices[symbol] = price
	return price, nil
}

// Direction helpers: a buy/long/higher position profits from rising prices.

func isLongside(direction string) bool {
	switch direction {
	case model.DirectionBuy, model.DirectionLong, model.DirectionHigher:
		return true
	}
	return false
}

// takeProfitHit checks the TP condition. TP is evaluated before SL, so when
// one price satisfies both hypothetically, take-profit wins.
func takeProfitHit(position *model.Position, price decimal.Decimal) bool {
	if isLongside(position.Direction) {
		return price.GreaterThanOrEqual(position.TakeProfit.Decimal)
	}
	return price.LessThanOrEqual(position.TakeProfit.Decimal)
}

func stopLossHit(position *model.Position, price decimal.Decimal) bool {
	if isLongside(position.Direction) {
		return price.LessThanOrEqual(position.StopLoss.Decimal)
	}
	return price.GreaterThanOrEqual(position.StopLoss.Decimal)
}
