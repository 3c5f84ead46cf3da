package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"tradeengine/src/model"
)

func openSpotPosition(t *testing.T, eng *Engine, amount, price string) *model.Position {
	t.Helper()

	entry := d(price)
	position, err := eng.Submit(context.Background(), model.TradeRequest{
		InstrumentType: model.InstrumentSpot,
		Direction:      model.DirectionBuy,
		Symbol:         "BTCUSDT",
		Amount:         d(amount),
		Price:          &entry,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return position
}

func TestSettleWithPriceWinCreditsPayout(t *testing.T) {
	eng, funds, _, positions := newTestEngine(t, "10000")

	position := openSpotPosition(t, eng, "100", "50000")

	settled, err := eng.SettleWithPrice(context.Background(), position, d("50500"), model.ExitReasonTimer)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if !settled {
		t.Fatal("expected the position to settle")
	}

	stored, err := positions.FindByID(context.Background(), position.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Status != model.PositionStatusWon {
		t.Fatalf("expected won, got %s", stored.Status)
	}
	if stored.ExitReason != model.ExitReasonTimer {
		t.Fatalf("expected exit reason timer, got %s", stored.ExitReason)
	}
	if !stored.Payout.Valid || !stored.Payout.Decimal.Equal(d("107.5")) {
		t.Fatalf("expected payout 107.5, got %+v", stored.Payout)
	}
	if stored.SettledAt == nil {
		t.Fatal("settled position must record the settlement time")
	}

	// 10000 - 100 + 107.5
	if !funds.balance().Equal(d("10007.5")) {
		t.Fatalf("expected balance 10007.5, got %s", funds.balance())
	}
}

func TestSettleLossForfeitsStake(t *testing.T) {
	eng, funds, _, positions := newTestEngine(t, "10000")

	entry := d("50000")
	position, err := eng.Submit(context.Background(), model.TradeRequest{
		InstrumentType: model.InstrumentBinary,
		Direction:      model.DirectionLower,
		Symbol:         "BTCUSDT",
		Amount:         d("50"),
		Price:          &entry,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// The price rose, so a "lower" prediction loses.
	settled, err := eng.SettleWithPrice(context.Background(), position, d("50100"), model.ExitReasonTimer)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if !settled {
		t.Fatal("expected the position to settle")
	}

	stored, err := positions.FindByID(context.Background(), position.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Status != model.PositionStatusLost {
		t.Fatalf("expected lost, got %s", stored.Status)
	}
	if !stored.Payout.Valid || !stored.Payout.Decimal.IsZero() {
		t.Fatalf("expected zero payout, got %+v", stored.Payout)
	}

	// The 50 stake stays forfeited.
	if !funds.balance().Equal(d("9950")) {
		t.Fatalf("expected balance 9950, got %s", funds.balance())
	}
}

func TestSettleTwicePaysOnce(t *testing.T) {
	eng, funds, _, _ := newTestEngine(t, "10000")

	position := openSpotPosition(t, eng, "100", "50000")

	settled, err := eng.SettleWithPrice(context.Background(), position, d("50500"), model.ExitReasonTimer)
	if err != nil || !settled {
		t.Fatalf("first settle: settled=%v err=%v", settled, err)
	}
	credits := funds.credits

	// A second evaluation of the same position must lose the claim and
	// leave the ledger alone.
	settled, err = eng.SettleWithPrice(context.Background(), position, d("51000"), model.ExitReasonTimer)
	if err != nil {
		t.Fatalf("second settle errored: %v", err)
	}
	if settled {
		t.Fatal("a terminal position must not settle again")
	}
	if funds.credits != credits {
		t.Fatalf("second settlement credited the ledger again: %d -> %d", credits, funds.credits)
	}
	if !funds.balance().Equal(d("10007.5")) {
		t.Fatalf("balance changed on repeated settlement: %s", funds.balance())
	}
}

func TestSettleForcedUsesStoredRates(t *testing.T) {
	eng, funds, _, positions := newTestEngine(t, "10000")

	position := openSpotPosition(t, eng, "100", "50000")

	// Take-profit fires: the trigger decided the outcome, the exit price is
	// only recorded.
	settled, err := eng.SettleForced(context.Background(), position, true, d("50200"), model.ExitReasonTakeProfit)
	if err != nil || !settled {
		t.Fatalf("forced settle: settled=%v err=%v", settled, err)
	}

	stored, err := positions.FindByID(context.Background(), position.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Status != model.PositionStatusWon {
		t.Fatalf("expected won, got %s", stored.Status)
	}
	if stored.ExitReason != model.ExitReasonTakeProfit {
		t.Fatalf("expected exit reason take_profit, got %s", stored.ExitReason)
	}
	if !stored.Payout.Decimal.Equal(d("107.5")) {
		t.Fatalf("forced win must use the stored profit pct, got %s", stored.Payout.Decimal)
	}
	if !funds.balance().Equal(d("10007.5")) {
		t.Fatalf("expected balance 10007.5, got %s", funds.balance())
	}
}

func TestOverride(t *testing.T) {
	eng, funds, _, positions := newTestEngine(t, "10000")

	position := openSpotPosition(t, eng, "100", "50000")

	if err := eng.Override(context.Background(), position.ID, true); err != nil {
		t.Fatalf("override failed: %v", err)
	}

	stored, err := positions.FindByID(context.Background(), position.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Status != model.PositionStatusAdminOverridden {
		t.Fatalf("expected admin_overridden, got %s", stored.Status)
	}
	if stored.ExitReason != model.ExitReasonAdmin {
		t.Fatalf("expected exit reason admin, got %s", stored.ExitReason)
	}
	if !stored.Payout.Decimal.Equal(d("107.5")) {
		t.Fatalf("override win must use the stored profit pct, got %s", stored.Payout.Decimal)
	}
	if !funds.balance().Equal(d("10007.5")) {
		t.Fatalf("expected balance 10007.5, got %s", funds.balance())
	}

	if err := eng.Override(context.Background(), position.ID, false); !errors.Is(err, ErrPositionAlreadyTerminal) {
		t.Fatalf("second override should fail with ErrPositionAlreadyTerminal, got %v", err)
	}

	if err := eng.Override(context.Background(), uuid.NewString(), true); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("unknown id should fail with ErrPositionNotFound, got %v", err)
	}
}

func TestStatisticsAggregatesSettledPositions(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, "10000")

	winner := openSpotPosition(t, eng, "100", "50000")
	loser := openSpotPosition(t, eng, "50", "50000")

	if settled, err := eng.SettleWithPrice(context.Background(), winner, d("50500"), model.ExitReasonTimer); err != nil || !settled {
		t.Fatalf("winner settle: settled=%v err=%v", settled, err)
	}
	if settled, err := eng.SettleWithPrice(context.Background(), loser, d("49500"), model.ExitReasonTimer); err != nil || !settled {
		t.Fatalf("loser settle: settled=%v err=%v", settled, err)
	}

	stats, err := eng.Statistics(context.Background(), "")
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.Wins != 1 || stats.Losses != 1 {
		t.Fatalf("expected 1 win / 1 loss, got %d / %d", stats.Wins, stats.Losses)
	}
	// +7.5 on the winner, -50 on the loser
	if !stats.NetProfit.Equal(d("-42.5")) {
		t.Fatalf("expected net profit -42.5, got %s", stats.NetProfit)
	}
}
