package model

import (
	"testing"
	"time"
)

func TestTradeRequestNormalize(t *testing.T) {
	request := TradeRequest{
		InstrumentType: " Futures ",
		Action:         "BUY",
		Direction:      "Long",
		OptionType:     "Long_Call",
		TriggerType:    "LIMIT",
		Symbol:         " btcusdt ",
	}

	request.Normalize()

	if request.InstrumentType != InstrumentFutures {
		t.Fatalf("instrument type not normalized: %q", request.InstrumentType)
	}
	if request.Direction != DirectionLong {
		t.Fatalf("direction not normalized: %q", request.Direction)
	}
	if request.TriggerType != TriggerTypeLimit {
		t.Fatalf("trigger type not normalized: %q", request.TriggerType)
	}
	if request.Symbol != "BTCUSDT" {
		t.Fatalf("symbol not normalized: %q", request.Symbol)
	}
}

func TestTradeRequestDuration(t *testing.T) {
	request := TradeRequest{DurationSeconds: 120, ExpirySeconds: 60}
	if request.Duration() != 120 {
		t.Fatalf("duration_seconds should win, got %d", request.Duration())
	}

	request = TradeRequest{ExpirySeconds: 60}
	if request.Duration() != 60 {
		t.Fatalf("expiry_seconds should be the fallback, got %d", request.Duration())
	}

	request = TradeRequest{}
	if request.Duration() != 0 {
		t.Fatalf("empty request should have zero duration, got %d", request.Duration())
	}
}

func TestPositionIsTerminal(t *testing.T) {
	terminal := []string{
		PositionStatusWon,
		PositionStatusLost,
		PositionStatusCancelled,
		PositionStatusAdminOverridden,
	}
	for _, status := range terminal {
		position := Position{Status: status}
		if !position.IsTerminal() {
			t.Fatalf("status %s should be terminal", status)
		}
	}

	for _, status := range []string{PositionStatusPendingOrder, PositionStatusOpen, PositionStatusSettling} {
		position := Position{Status: status}
		if position.IsTerminal() {
			t.Fatalf("status %s should not be terminal", status)
		}
	}
}

func TestPositionExpired(t *testing.T) {
	now := time.Now()

	position := Position{}
	if position.Expired(now) {
		t.Fatal("position without expiry should never expire")
	}

	past := now.Add(-time.Second)
	position.ExpiresAt = &past
	if !position.Expired(now) {
		t.Fatal("position past its expiry should be expired")
	}

	future := now.Add(time.Second)
	position.ExpiresAt = &future
	if position.Expired(now) {
		t.Fatal("position before its expiry should not be expired")
	}

	position.ExpiresAt = &now
	if !position.Expired(now) {
		t.Fatal("position is expired exactly at its expiry instant")
	}
}
