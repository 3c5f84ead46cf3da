package outcome

import (
	"github.com/shopspring/decimal"
)

// ProfitParams are the open-time profit percentage inputs. The percentage is
// fixed when the position is created and never recomputed at settlement.
type ProfitParams struct {
	BasePct      decimal.Decimal
	PerMinutePct decimal.Decimal
	LeveragePct  decimal.Decimal
}

var secondsPerMinute = decimal.NewFromInt(60)

// ProfitPercentage computes base + durationMinutes * perMinuteRate, plus
// leverage * leverageRate for leveraged positions. Leverage at or below 1x
// adds nothing.
func ProfitPercentage(params ProfitParams, durationSeconds int64, leverage decimal.Decimal) decimal.Decimal {
	minutes := decimal.NewFromInt(durationSeconds).Div(secondsPerMinute)

	pct := params.BasePct.Add(minutes.Mul(params.PerMinutePct))
	if leverage.GreaterThan(decimal.NewFromInt(1)) {
		pct = pct.Add(leverage.Mul(params.LeveragePct))
	}

	return pct
}
