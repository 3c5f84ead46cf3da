package outcome

import (
	"github.com/shopspring/decimal"

	"tradeengine/src/model"
)

// Result of a settlement evaluation.
type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
)

// Outcome is the terminal verdict for one position: who won and exactly how
// much the ledger is credited. A zero payout means the stake is forfeited.
type Outcome struct {
	Result Result
	Payout decimal.Decimal
}

// OptionPremiumRate is the flat premium charged on option positions,
// expressed as a fraction of notional.
var OptionPremiumRate = decimal.NewFromFloat(0.10)

var hundred = decimal.NewFromInt(100)

// Calculator maps (entry price, exit price, position parameters) to a
// win/lose outcome per instrument type. Price-driven instruments are pure
// comparisons; quant, bot, staking and strategy positions delegate to the
// injected probability model.
type Calculator struct {
	probability ProbabilityModel
}

// NewCalculator builds a calculator around the given probability model.
func NewCalculator(probability ProbabilityModel) *Calculator {
	return &Calculator{probability: probability}
}

// Evaluate decides the outcome of a position settling at the given exit
// price. The position's stored profit percentage and payout rate are used as
// written at open time.
func (c *Calculator) Evaluate(position *model.Position, exitPrice decimal.Decimal) Outcome {
	switch position.InstrumentType {
	case model.InstrumentSpot, model.InstrumentFutures:
		return c.directional(position, exitPrice)
	case model.InstrumentBinary:
		return c.binary(position, exitPrice)
	case model.InstrumentOptions:
		return c.options(position, exitPrice)
	default:
		return c.probabilistic(position)
	}
}

// Forced produces the outcome for an administrative override, crediting the
// payout from the position's stored rates instead of any price comparison.
func (c *Calculator) Forced(position *model.Position, win bool) Outcome {
	if !win {
		return Outcome{Result: ResultLose, Payout: decimal.Zero}
	}

	if position.InstrumentType == model.InstrumentBinary {
		return Outcome{
			Result: ResultWin,
			Payout: winPayout(position.Amount, position.PayoutRate),
		}
	}

	return Outcome{
		Result: ResultWin,
		Payout: winPayout(position.Amount, position.ProfitPct),
	}
}

func (c *Calculator) directional(position *model.Position, exitPrice decimal.Decimal) Outcome {
	var won bool
	switch position.Direction {
	case model.DirectionBuy, model.DirectionLong:
		won = exitPrice.GreaterThan(position.EntryPrice)
	case model.DirectionSell, model.DirectionShort:
		won = exitPrice.LessThan(position.EntryPrice)
	}

	if !won {
		return Outcome{Result: ResultLose, Payout: decimal.Zero}
	}

	return Outcome{
		Result: ResultWin,
		Payout: winPayout(position.Amount, position.ProfitPct),
	}
}

func (c *Calculator) binary(position *model.Position, exitPrice decimal.Decimal) Outcome {
	var won bool
	switch position.Direction {
	case model.DirectionHigher, model.DirectionBuy:
		won = exitPrice.GreaterThan(position.EntryPrice)
	case model.DirectionLower, model.DirectionSell:
		won = exitPrice.LessThan(position.EntryPrice)
	}

	if !won {
		return Outcome{Result: ResultLose, Payout: decimal.Zero}
	}

	return Outcome{
		Result: ResultWin,
		Payout: winPayout(position.Amount, position.PayoutRate),
	}
}

func (c *Calculator) options(position *model.Position, exitPrice decimal.Decimal) Outcome {
	strike := position.EntryPrice
	premiumPerUnit := strike.Mul(OptionPremiumRate)
	premium := position.ReservedFunds

	switch position.OptionType {
	case model.OptionLongPut:
		breakeven := strike.Sub(premiumPerUnit)
		if exitPrice.LessThan(breakeven) {
			intrinsic := breakeven.Sub(exitPrice)
			return Outcome{
				Result: ResultWin,
				Payout: winPayout(position.Amount, intrinsicPct(intrinsic, strike)),
			}
		}
		return Outcome{Result: ResultLose, Payout: decimal.Zero}

	case model.OptionCoveredCall:
		// The collected premium is kept on both sides; the losing leg still
		// credits it, so the reported loss never goes negative.
		if exitPrice.LessThan(strike) {
			return Outcome{Result: ResultWin, Payout: premium}
		}
		return Outcome{Result: ResultLose, Payout: premium}

	case model.OptionCashSecuredPut:
		if exitPrice.GreaterThan(strike) {
			return Outcome{Result: ResultWin, Payout: premium}
		}
		return Outcome{Result: ResultLose, Payout: decimal.Zero}

	default: // long call
		breakeven := strike.Add(premiumPerUnit)
		if exitPrice.GreaterThan(breakeven) {
			intrinsic := exitPrice.Sub(breakeven)
			return Outcome{
				Result: ResultWin,
				Payout: winPayout(position.Amount, intrinsicPct(intrinsic, strike)),
			}
		}
		return Outcome{Result: ResultLose, Payout: decimal.Zero}
	}
}

func (c *Calculator) probabilistic(position *model.Position) Outcome {
	draw := c.probability.Draw()

	if draw.Win {
		return Outcome{
			Result: ResultWin,
			Payout: winPayout(position.Amount, draw.ProfitPct),
		}
	}

	// A losing probabilistic position returns a fraction of the stake.
	return Outcome{
		Result: ResultLose,
		Payout: position.Amount.Mul(draw.LossPct).Div(hundred),
	}
}

func winPayout(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
}

func intrinsicPct(intrinsic, strike decimal.Decimal) decimal.Decimal {
	if strike.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return intrinsic.Div(strike).Mul(hundred)
}
