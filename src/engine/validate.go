package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeengine/src/model"
)

var validInstruments = map[string]bool{
	model.InstrumentSpot:     true,
	model.InstrumentFutures:  true,
	model.InstrumentOptions:  true,
	model.InstrumentBinary:   true,
	model.InstrumentQuant:    true,
	model.InstrumentBot:      true,
	model.InstrumentStaking:  true,
	model.InstrumentStrategy: true,
}

var validOptionTypes = map[string]bool{
	"":                         true, // defaults to long call
	model.OptionLongCall:       true,
	model.OptionLongPut:        true,
	model.OptionCoveredCall:    true,
	model.OptionCashSecuredPut: true,
}

// validateRequest rejects malformed requests before any side effect.
func validateRequest(request *model.TradeRequest) error {
	if !validInstruments[request.InstrumentType] {
		return fmt.Errorf("%w: unknown instrument type %q", ErrInvalidRequest, request.InstrumentType)
	}
	if request.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if request.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if request.Price != nil && request.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
	}

	switch request.InstrumentType {
	case model.InstrumentSpot:
		if request.Direction != model.DirectionBuy && request.Direction != model.DirectionSell {
			return fmt.Errorf("%w: spot direction must be buy or sell", ErrInvalidRequest)
		}
	case model.InstrumentFutures:
		if err := validateFutures(request); err != nil {
			return err
		}
	case model.InstrumentBinary:
		switch request.Direction {
		case model.DirectionHigher, model.DirectionLower, model.DirectionBuy, model.DirectionSell:
		default:
			return fmt.Errorf("%w: binary direction must be higher or lower", ErrInvalidRequest)
		}
		if request.PayoutRate != nil && request.PayoutRate.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: payout rate must be positive", ErrInvalidRequest)
		}
	case model.InstrumentOptions:
		if !validOptionTypes[request.OptionType] {
			return fmt.Errorf("%w: unknown option type %q", ErrInvalidRequest, request.OptionType)
		}
	}

	if request.TriggerType != "" && request.InstrumentType != model.InstrumentFutures {
		return fmt.Errorf("%w: trigger orders are futures-only", ErrInvalidRequest)
	}

	return nil
}

func validateFutures(request *model.TradeRequest) error {
	switch request.Direction {
	case model.DirectionLong, model.DirectionShort, model.DirectionBuy, model.DirectionSell:
	default:
		return fmt.Errorf("%w: futures direction must be long or short", ErrInvalidRequest)
	}

	if request.Leverage != nil && request.Leverage.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: leverage must be at least 1", ErrInvalidRequest)
	}

	if request.TriggerType != "" {
		if request.TriggerType != model.TriggerTypeLimit && request.TriggerType != model.TriggerTypeStop {
			return fmt.Errorf("%w: trigger type must be limit or stop", ErrInvalidRequest)
		}
		if request.TriggerPrice == nil || request.TriggerPrice.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: trigger price is required for %s orders", ErrInvalidRequest, request.TriggerType)
		}
	}

	if request.StopLoss != nil && request.StopLoss.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: stop loss must be positive", ErrInvalidRequest)
	}
	if request.TakeProfit != nil && request.TakeProfit.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: take profit must be positive", ErrInvalidRequest)
	}

	return nil
}
