package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
	"tradeengine/src/outcome"
	"tradeengine/src/pricing"
)

var one = decimal.NewFromInt(1)

// Submit validates a trade request, reserves funds and creates the position.
// Rejections (invalid shape, insufficient funds) happen before any state
// change and are not retried; the caller must resubmit.
func (e *Engine) Submit(ctx context.Context, request model.TradeRequest) (*model.Position, error) {
	request.Normalize()

	if err := validateRequest(&request); err != nil {
		return nil, err
	}

	// Futures limit/stop orders wait for their trigger; no funds are
	// reserved until the order opens.
	if request.TriggerType != "" {
		return e.submitPendingOrder(ctx, request)
	}

	referencePrice, err := e.referencePrice(ctx, &request)
	if err != nil {
		return nil, err
	}

	reservation := e.requiredReservation(&request, referencePrice)

	available, err := e.ledger.Available(ctx, e.config.Asset)
	if err != nil {
		return nil, fmt.Errorf("ledger query failed: %w", err)
	}
	if available.LessThan(reservation) {
		e.emitter.Notify(ctx, model.NotificationInsufficientBalance,
			"Insufficient balance",
			fmt.Sprintf("Trade requires %s %s, available %s", reservation, e.config.Asset, available),
			"", map[string]any{
				"required":  reservation.String(),
				"available": available.String(),
			})
		return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, reservation, available)
	}

	reserved, err := e.ledger.Reserve(ctx, e.config.Asset, reservation)
	if err != nil {
		return nil, fmt.Errorf("ledger reserve failed: %w", err)
	}
	if !reserved {
		// The balance moved between the check and the debit.
		e.emitter.Notify(ctx, model.NotificationInsufficientBalance,
			"Insufficient balance",
			fmt.Sprintf("Reservation of %s %s was rejected", reservation, e.config.Asset),
			"", map[string]any{"required": reservation.String()})
		return nil, fmt.Errorf("%w: reservation of %s rejected", ErrInsufficientFunds, reservation)
	}

	position := e.buildPosition(&request, referencePrice, reservation)

	if err := e.positions.Create(ctx, position); err != nil {
		// Compensate: the debit already happened, put it back.
		if creditErr := e.ledger.Credit(ctx, e.config.Asset, reservation); creditErr != nil {
			logger.WithError(creditErr).Error("failed to refund reservation after store failure")
		}
		return nil, fmt.Errorf("position insert failed: %w", err)
	}

	e.emitOpened(ctx, position)

	return position, nil
}

func (e *Engine) submitPendingOrder(ctx context.Context, request model.TradeRequest) (*model.Position, error) {
	now := e.now()

	position := &model.Position{
		ID:              uuid.NewString(),
		UserID:          e.config.UserID,
		InstrumentType:  request.InstrumentType,
		Direction:       request.Direction,
		Symbol:          request.Symbol,
		Amount:          request.Amount,
		Leverage:        leverageOrDefault(request.Leverage),
		StopLoss:        nullDecimal(request.StopLoss),
		TakeProfit:      nullDecimal(request.TakeProfit),
		TriggerType:     request.TriggerType,
		TriggerPrice:    nullDecimal(request.TriggerPrice),
		DurationSeconds: e.durationOrDefault(&request),
		Status:          model.PositionStatusPendingOrder,
		OpenedAt:        now,
	}

	if err := e.positions.Create(ctx, position); err != nil {
		return nil, fmt.Errorf("pending order insert failed: %w", err)
	}

	e.emitter.Notify(ctx, model.NotificationTradePlaced,
		"Order placed",
		fmt.Sprintf("%s %s order on %s awaiting trigger at %s",
			request.TriggerType, request.Direction, request.Symbol, position.TriggerPrice.Decimal),
		position.ID, map[string]any{"trigger_type": request.TriggerType})
	e.emitter.Activity(ctx, "trading", "order_placed",
		fmt.Sprintf("Pending %s order on %s", request.TriggerType, request.Symbol),
		request.Amount, request.Symbol, model.ActivityStatusPending,
		map[string]any{"position_id": position.ID})

	return position, nil
}

// OpenTriggered promotes a pending limit/stop order whose trigger price has
// been reached. The reservation happens now, at the current price; the
// profit percentage is fixed here as well. Returns false when the order was
// no longer pending or the reservation failed.
func (e *Engine) OpenTriggered(ctx context.Context, position *model.Position, currentPrice decimal.Decimal) (bool, error) {
	leverage := position.Leverage
	if leverage.LessThan(one) {
		leverage = one
	}
	reservation := position.Amount.Mul(currentPrice).Div(leverage)

	reserved, err := e.ledger.Reserve(ctx, e.config.Asset, reservation)
	if err != nil {
		return false, fmt.Errorf("ledger reserve failed: %w", err)
	}
	if !reserved {
		// A triggered order we cannot fund is cancelled rather than retried
		// forever against a balance that is not coming back.
		if _, cancelErr := e.positions.Cancel(ctx, position.ID, e.now()); cancelErr != nil {
			return false, cancelErr
		}
		e.emitter.Notify(ctx, model.NotificationInsufficientBalance,
			"Order cancelled",
			fmt.Sprintf("Triggered %s order on %s cancelled: reservation of %s %s rejected",
				position.TriggerType, position.Symbol, reservation, e.config.Asset),
			position.ID, nil)
		return false, nil
	}

	now := e.now()
	expiresAt := now.Add(time.Duration(position.DurationSeconds) * time.Second)
	profitPct := outcome.ProfitPercentage(e.profitParams, position.DurationSeconds, position.Leverage)

	opened, err := e.positions.MarkOpen(ctx, position.ID, currentPrice, reservation, profitPct, now, &expiresAt)
	if err != nil {
		return false, err
	}
	if !opened {
		// Lost the race (e.g. user cancelled between ticks); refund.
		if creditErr := e.ledger.Credit(ctx, e.config.Asset, reservation); creditErr != nil {
			logger.WithError(creditErr).Error("failed to refund reservation for stale trigger")
		}
		return false, nil
	}

	e.emitter.Notify(ctx, model.NotificationTradePlaced,
		"Order triggered",
		fmt.Sprintf("%s order on %s opened at %s", position.TriggerType, position.Symbol, currentPrice),
		position.ID, map[string]any{"entry_price": currentPrice.String()})
	e.emitter.Activity(ctx, "trading", "order_triggered",
		fmt.Sprintf("%s order on %s opened", position.TriggerType, position.Symbol),
		position.Amount, position.Symbol, model.ActivityStatusRunning,
		map[string]any{"position_id": position.ID})

	return true, nil
}

// CancelPendingOrder cancels an untriggered limit/stop order. Open positions
// run to settlement and cannot be cancelled.
func (e *Engine) CancelPendingOrder(ctx context.Context, id string) error {
	position, err := e.positions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if position == nil {
		return fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	cancelled, err := e.positions.Cancel(ctx, id, e.now())
	if err != nil {
		return err
	}
	if !cancelled {
		return fmt.Errorf("%w: %s is %s", ErrPositionAlreadyTerminal, id, position.Status)
	}

	e.emitter.Activity(ctx, "trading", "order_cancelled",
		fmt.Sprintf("Pending order on %s cancelled", position.Symbol),
		position.Amount, position.Symbol, model.ActivityStatusCompleted,
		map[string]any{"position_id": id})

	return nil
}

func (e *Engine) referencePrice(ctx context.Context, request *model.TradeRequest) (decimal.Decimal, error) {
	if request.Price != nil && request.Price.GreaterThan(decimal.Zero) {
		return *request.Price, nil
	}

	price, err := e.prices.GetPrice(ctx, request.Symbol)
	if err != nil {
		if errors.Is(err, pricing.ErrPriceUnavailable) {
			return decimal.Zero, fmt.Errorf("%w: no reference price for %s", ErrPriceUnavailable, request.Symbol)
		}
		return decimal.Zero, err
	}

	return price, nil
}

// requiredReservation computes the funds debited at open time.
func (e *Engine) requiredReservation(request *model.TradeRequest, referencePrice decimal.Decimal) decimal.Decimal {
	switch request.InstrumentType {
	case model.InstrumentFutures:
		return request.Amount.Mul(referencePrice).Div(leverageOrDefault(request.Leverage))
	case model.InstrumentOptions:
		return request.Amount.Mul(referencePrice).Mul(outcome.OptionPremiumRate)
	default:
		// spot, binary, quant, bot, staking, strategy: the amount is already
		// expressed in the quote currency.
		return request.Amount
	}
}

func (e *Engine) buildPosition(request *model.TradeRequest, referencePrice, reservation decimal.Decimal) *model.Position {
	now := e.now()
	duration := e.durationOrDefault(request)
	expiresAt := now.Add(time.Duration(duration) * time.Second)
	leverage := leverageOrDefault(request.Leverage)

	position := &model.Position{
		ID:              uuid.NewString(),
		UserID:          e.config.UserID,
		InstrumentType:  request.InstrumentType,
		Direction:       request.Direction,
		Symbol:          request.Symbol,
		Amount:          request.Amount,
		EntryPrice:      referencePrice,
		ReservedFunds:   reservation,
		Leverage:        leverage,
		OptionType:      request.OptionType,
		StopLoss:        nullDecimal(request.StopLoss),
		TakeProfit:      nullDecimal(request.TakeProfit),
		DurationSeconds: duration,
		BotID:           request.BotID,
		PoolID:          request.PoolID,
		Status:          model.PositionStatusOpen,
		OpenedAt:        now,
		ExpiresAt:       &expiresAt,
	}

	switch request.InstrumentType {
	case model.InstrumentSpot, model.InstrumentFutures:
		position.ProfitPct = outcome.ProfitPercentage(e.profitParams, duration, leverage)
	case model.InstrumentBinary:
		if request.PayoutRate != nil && request.PayoutRate.GreaterThan(decimal.Zero) {
			position.PayoutRate = *request.PayoutRate
		} else {
			position.PayoutRate = decimal.NewFromFloat(e.config.DefaultBinaryPayoutPct)
		}
	case model.InstrumentOptions:
		if position.OptionType == "" {
			position.OptionType = model.OptionLongCall
		}
	}

	return position
}

func (e *Engine) emitOpened(ctx context.Context, position *model.Position) {
	kind := model.NotificationTradePlaced
	title := "Trade placed"
	activityStatus := model.ActivityStatusRunning
	if position.InstrumentType == model.InstrumentStaking {
		kind = model.NotificationStakeInitiated
		title = "Stake initiated"
	}

	e.emitter.Notify(ctx, kind, title,
		fmt.Sprintf("%s %s on %s for %s %s",
			position.InstrumentType, position.Direction, position.Symbol,
			position.Amount, e.config.Asset),
		position.ID, map[string]any{
			"entry_price": position.EntryPrice.String(),
			"reserved":    position.ReservedFunds.String(),
		})
	e.emitter.Activity(ctx, "trading", "trade_placed",
		fmt.Sprintf("Opened %s position on %s", position.InstrumentType, position.Symbol),
		position.Amount, position.Symbol, activityStatus,
		map[string]any{"position_id": position.ID})
}

func (e *Engine) durationOrDefault(request *model.TradeRequest) int64 {
	if duration := request.Duration(); duration > 0 {
		return duration
	}
	// Every open position carries a bounded expiry; there is no indefinite
	// trade.
	return e.config.DefaultDurationSeconds
}

func leverageOrDefault(leverage *decimal.Decimal) decimal.Decimal {
	if leverage != nil && leverage.GreaterThanOrEqual(one) {
		return *leverage
	}
	return one
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}
