package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
	"tradeengine/src/outcome"
	"tradeengine/src/repository"
)

// SettleWithPrice settles an open position at the given exit price, letting
// the outcome calculator decide win or lose. Used for expiry settlement.
// Returns false if the position was consumed by another evaluation first.
func (e *Engine) SettleWithPrice(ctx context.Context, position *model.Position, exitPrice decimal.Decimal, exitReason string) (bool, error) {
	claimed, err := e.positions.Claim(ctx, position.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	verdict := e.calc.Evaluate(position, exitPrice)
	return e.commit(ctx, position, verdict, exitPrice, exitReason, terminalStatus(verdict))
}

// SettleForced settles an open position with a predetermined result,
// bypassing the price comparison. Used when a take-profit or stop-loss
// trigger fires: the trigger itself already decided the outcome.
func (e *Engine) SettleForced(ctx context.Context, position *model.Position, win bool, exitPrice decimal.Decimal, exitReason string) (bool, error) {
	claimed, err := e.positions.Claim(ctx, position.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	verdict := e.calc.Forced(position, win)
	return e.commit(ctx, position, verdict, exitPrice, exitReason, terminalStatus(verdict))
}

// Override forces a terminal state on an open position, crediting the payout
// from the position's stored rates. The resulting status is
// admin_overridden and the emitted events are flagged as administrative.
func (e *Engine) Override(ctx context.Context, id string, win bool) error {
	position, err := e.positions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if position == nil {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}
	if position.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrPositionAlreadyTerminal, id, position.Status)
	}

	claimed, err := e.positions.Claim(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("%w: %s", ErrPositionAlreadyTerminal, id)
	}

	verdict := e.calc.Forced(position, win)

	exitPrice := position.EntryPrice
	committed, err := e.commit(ctx, position, verdict, exitPrice, model.ExitReasonAdmin, model.PositionStatusAdminOverridden)
	if err != nil {
		return err
	}
	if !committed {
		return fmt.Errorf("%w: %s", ErrPositionAlreadyTerminal, id)
	}

	return nil
}

// commit writes the terminal state (CAS from settling), credits the payout
// and emits the settlement events. The ledger credit happens strictly after
// the status write, so a crash can never pay the same position twice.
func (e *Engine) commit(
	ctx context.Context,
	position *model.Position,
	verdict outcome.Outcome,
	exitPrice decimal.Decimal,
	exitReason string,
	status string,
) (bool, error) {

	update := repository.TerminalUpdate{
		Status:     status,
		ExitPrice:  decimal.NullDecimal{Decimal: exitPrice, Valid: true},
		Payout:     decimal.NullDecimal{Decimal: verdict.Payout, Valid: true},
		ExitReason: exitReason,
		SettledAt:  e.now(),
	}

	committed, err := e.positions.MarkTerminal(ctx, position.ID, update)
	if err != nil {
		return false, err
	}
	if !committed {
		return false, nil
	}

	if verdict.Payout.GreaterThan(decimal.Zero) {
		if err := e.ledger.Credit(ctx, e.config.Asset, verdict.Payout); err != nil {
			// The position is already terminal; log loudly rather than
			// risking a second credit on retry.
			logger.WithError(err).WithFields(logger.Fields{
				"position_id": position.ID,
				"payout":      verdict.Payout.String(),
			}).Error("settlement credit failed")
		}
	}

	e.emitSettled(ctx, position, verdict, exitPrice, exitReason, status)

	return true, nil
}

func terminalStatus(verdict outcome.Outcome) string {
	if verdict.Result == outcome.ResultWin {
		return model.PositionStatusWon
	}
	return model.PositionStatusLost
}

func (e *Engine) emitSettled(
	ctx context.Context,
	position *model.Position,
	verdict outcome.Outcome,
	exitPrice decimal.Decimal,
	exitReason, status string,
) {
	profit := verdict.Payout.Sub(position.ReservedFunds)

	var kind, title string
	switch {
	case status == model.PositionStatusAdminOverridden:
		kind = model.NotificationAdminOverride
		title = "Position settled by administrator"
	case position.InstrumentType == model.InstrumentStaking:
		kind = model.NotificationStakeCompleted
		title = "Stake completed"
	case verdict.Result == outcome.ResultWin:
		kind = model.NotificationTradeWon
		title = "Trade won"
	default:
		kind = model.NotificationTradeLost
		title = "Trade lost"
	}

	e.emitter.Notify(ctx, kind, title,
		fmt.Sprintf("%s on %s settled %s: payout %s %s (net %s)",
			position.InstrumentType, position.Symbol, verdict.Result,
			verdict.Payout, e.config.Asset, profit),
		position.ID, map[string]any{
			"result":      string(verdict.Result),
			"payout":      verdict.Payout.String(),
			"net_profit":  profit.String(),
			"exit_price":  exitPrice.String(),
			"exit_reason": exitReason,
			"admin":       status == model.PositionStatusAdminOverridden,
		})

	e.emitter.Activity(ctx, "trading", "settlement",
		fmt.Sprintf("%s position on %s settled %s (%s)",
			position.InstrumentType, position.Symbol, verdict.Result, exitReason),
		verdict.Payout, position.Symbol, model.ActivityStatusCompleted,
		map[string]any{
			"position_id": position.ID,
			"admin":       status == model.PositionStatusAdminOverridden,
		})
}
