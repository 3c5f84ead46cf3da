package outcome

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Draw is one sampled outcome for a probabilistic instrument. ProfitPct
// applies when Win is true; LossPct is the fraction of the stake returned on
// a loss.
type Draw struct {
	Win       bool
	ProfitPct decimal.Decimal
	LossPct   decimal.Decimal
}

// ProbabilityModel decides quant/bot/staking outcomes. It is injected so
// tests can swap a deterministic double for the random production model;
// price-driven instruments never consult it.
type ProbabilityModel interface {
	Draw() Draw
}

// RandomModel samples wins at a configured rate with profit and loss
// percentages drawn uniformly from configured ranges.
type RandomModel struct {
	winRate   float64
	minProfit float64
	maxProfit float64
	minLoss   float64
	maxLoss   float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomModel builds the production model. winRate is clamped to [0,1].
func NewRandomModel(winRate, minProfit, maxProfit, minLoss, maxLoss float64) *RandomModel {
	if winRate < 0 {
		winRate = 0
	}
	if winRate > 1 {
		winRate = 1
	}
	if maxProfit < minProfit {
		maxProfit = minProfit
	}
	if maxLoss < minLoss {
		maxLoss = minLoss
	}

	return &RandomModel{
		winRate:   winRate,
		minProfit: minProfit,
		maxProfit: maxProfit,
		minLoss:   minLoss,
		maxLoss:   maxLoss,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Draw samples one outcome.
func (m *RandomModel) Draw() Draw {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rng.Float64() < m.winRate {
		pct := m.minProfit + m.rng.Float64()*(m.maxProfit-m.minProfit)
		return Draw{Win: true, ProfitPct: decimal.NewFromFloat(pct)}
	}

	pct := m.minLoss + m.rng.Float64()*(m.maxLoss-m.minLoss)
	return Draw{Win: false, LossPct: decimal.NewFromFloat(pct)}
}

// FixedModel always returns the same draw. Used as a deterministic stand-in
// for RandomModel in tests.
type FixedModel struct {
	Result Draw
}

func (m *FixedModel) Draw() Draw {
	return m.Result
}
