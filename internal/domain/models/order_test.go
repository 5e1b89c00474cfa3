package models

import "testing"

func TestPnlAt(t *testing.T) {
	long := &Position{Symbol: "BTCUSDT", Side: SideLong, Size: 2, EntryPrice: 100}
	if got := long.PnlAt(105); got != 10 {
		t.Fatalf("long pnl = %v, want 10", got)
	}
	short := &Position{Symbol: "BTCUSDT", Side: SideShort, Size: 2, EntryPrice: 100}
	if got := short.PnlAt(105); got != -10 {
		t.Fatalf("short pnl = %v, want -10", got)
	}
}

func TestBreachedLong(t *testing.T) {
	p := &Position{Side: SideLong, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if got := p.Breached(95); got != CloseReasonStop {
		t.Fatalf("at stop: %s", got)
	}
	if got := p.Breached(110); got != CloseReasonTP {
		t.Fatalf("at target: %s", got)
	}
	if got := p.Breached(100); got != "" {
		t.Fatalf("inside bracket: %s", got)
	}
}

func TestBreachedShort(t *testing.T) {
	p := &Position{Side: SideShort, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 90}
	if got := p.Breached(106); got != CloseReasonStop {
		t.Fatalf("above stop: %s", got)
	}
	if got := p.Breached(89); got != CloseReasonTP {
		t.Fatalf("below target: %s", got)
	}
	if got := p.Breached(100); got != "" {
		t.Fatalf("inside bracket: %s", got)
	}
}

func TestSignalEventRoundTrip(t *testing.T) {
	sig := &Signal{
		Symbol:                 "ETHUSDT",
		Direction:              DirectionSell,
		Confidence:             0.75,
		Score:                  -1.5,
		ContributingTimeframes: []string{"5m", "1h"},
		Message:                "test",
	}
	got := sig.Event().Signal()
	if got.Symbol != sig.Symbol || got.Direction != sig.Direction || got.Score != sig.Score {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestSignalActionable(t *testing.T) {
	if (&Signal{Direction: DirectionHold}).Actionable() {
		t.Fatalf("HOLD must not be actionable")
	}
	if !(&Signal{Direction: DirectionBuy}).Actionable() || !(&Signal{Direction: DirectionSell}).Actionable() {
		t.Fatalf("BUY and SELL must be actionable")
	}
}
