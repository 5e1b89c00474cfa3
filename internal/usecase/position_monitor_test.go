package usecase

import (
	"context"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/service/symbollock"

	"github.com/benbjohnson/clock"
)

func newTestMonitor(market *fakeMarket, ex *fakeExchange) (*PositionMonitor, *memState) {
	state := newMemState()
	queue := &fakeQueue{}
	settings := models.DefaultTradingSettings()
	settings.ActiveHours = nil
	clk := clock.NewMock()
	gate := NewAutoTradingController(newMemSettings(settings), state, nopMetrics{}, testLogger(), clk)
	locks := symbollock.New(time.Second)
	executor := NewOrderExecutor(ex, state, queue, gate, nopMetrics{}, locks, testLogger(), clk)
	m := NewPositionMonitor(market, state, executor, nopMetrics{}, locks, testLogger(), clk, time.Second, 2)
	return m, state
}

func TestIterateRefreshesPnl(t *testing.T) {
	market := newFakeMarket()
	market.prices["BTCUSDT"] = 104
	m, state := newTestMonitor(market, newFakeExchange())
	ctx := context.Background()

	p := &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 2, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if err := state.SavePosition(ctx, p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m.Iterate(ctx)

	refreshed, _ := state.Position(ctx, "BTCUSDT")
	if refreshed == nil {
		t.Fatalf("position disappeared")
	}
	if refreshed.UnrealizedPnl != 8 { // (104-100)*2
		t.Fatalf("pnl = %v, want 8", refreshed.UnrealizedPnl)
	}
}

func TestIterateClosesOnStopBreach(t *testing.T) {
	market := newFakeMarket()
	market.prices["BTCUSDT"] = 94
	ex := newFakeExchange()
	m, state := newTestMonitor(market, ex)
	ctx := context.Background()

	p := &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 2, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if err := state.SavePosition(ctx, p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m.Iterate(ctx)

	if pos, _ := state.Position(ctx, "BTCUSDT"); pos != nil {
		t.Fatalf("position survived stop breach")
	}
	if ex.closeCalls != 1 {
		t.Fatalf("close calls = %d, want 1", ex.closeCalls)
	}
}

func TestIterateClosesOnTakeProfit(t *testing.T) {
	market := newFakeMarket()
	market.prices["ETHUSDT"] = 89
	ex := newFakeExchange()
	m, state := newTestMonitor(market, ex)
	ctx := context.Background()

	// Short position: take profit triggers at or below 90.
	p := &models.Position{Symbol: "ETHUSDT", Side: models.SideShort, Size: 1, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 90}
	if err := state.SavePosition(ctx, p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m.Iterate(ctx)

	if pos, _ := state.Position(ctx, "ETHUSDT"); pos != nil {
		t.Fatalf("position survived take profit")
	}
}

func TestIteratePriceFailureSkipsSymbol(t *testing.T) {
	market := newFakeMarket()
	// No price for ETHUSDT; BTCUSDT still refreshes.
	market.prices["BTCUSDT"] = 101
	m, state := newTestMonitor(market, newFakeExchange())
	ctx := context.Background()

	for _, sym := range []string{"BTCUSDT", "ETHUSDT"} {
		p := &models.Position{Symbol: sym, Side: models.SideLong, Size: 1, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
		if err := state.SavePosition(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", sym, err)
		}
	}

	m.Iterate(ctx)

	btc, _ := state.Position(ctx, "BTCUSDT")
	if btc.UnrealizedPnl != 1 {
		t.Fatalf("btc pnl = %v, want 1", btc.UnrealizedPnl)
	}
	eth, _ := state.Position(ctx, "ETHUSDT")
	if eth == nil {
		t.Fatalf("failing symbol's position removed")
	}
}

func TestStartStop(t *testing.T) {
	market := newFakeMarket()
	m, _ := newTestMonitor(market, newFakeExchange())

	m.Start(context.Background())
	m.Stop()
	// Stop is idempotent.
	m.Stop()
}
