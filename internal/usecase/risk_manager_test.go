package usecase

import (
	"context"
	"errors"
	"testing"

	"TradePilot/internal/domain/models"
)

func planSettings() models.TradingSettings {
	s := models.DefaultTradingSettings()
	s.Leverage = 10
	s.RiskPerTrade = 0.02
	s.AccountBalance = 10000
	s.ATRMultiplier = 1
	s.TPRatio = 1.5
	return s
}

func buySignal(atr float64) *models.Signal {
	return &models.Signal{
		Symbol:    "BTCUSDT",
		Direction: models.DirectionBuy,
		Snapshot:  &models.IndicatorSnapshot{Symbol: "BTCUSDT", ATR: atr},
	}
}

func TestPlanLong(t *testing.T) {
	rm := NewRiskManager(newFakeExchange())
	plan, err := rm.Plan(context.Background(), buySignal(5), planSettings(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Side != models.SideLong {
		t.Fatalf("side = %s, want LONG", plan.Side)
	}
	// stop distance 1*5=5, size = 10000*0.02*10/5 = 400
	if plan.StopLossPrice != 95 {
		t.Fatalf("stop = %v, want 95", plan.StopLossPrice)
	}
	if plan.TakeProfitPrice != 107.5 {
		t.Fatalf("tp = %v, want 107.5", plan.TakeProfitPrice)
	}
	if plan.Size != 400 {
		t.Fatalf("size = %v, want 400", plan.Size)
	}
	if plan.Leverage != 10 {
		t.Fatalf("leverage = %d, want 10", plan.Leverage)
	}
}

func TestPlanShortMirrorsBracket(t *testing.T) {
	rm := NewRiskManager(newFakeExchange())
	sig := buySignal(5)
	sig.Direction = models.DirectionSell
	plan, err := rm.Plan(context.Background(), sig, planSettings(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Side != models.SideShort {
		t.Fatalf("side = %s, want SHORT", plan.Side)
	}
	if plan.StopLossPrice != 105 || plan.TakeProfitPrice != 92.5 {
		t.Fatalf("bracket = %v/%v, want 105/92.5", plan.StopLossPrice, plan.TakeProfitPrice)
	}
}

func TestPlanRejectsHold(t *testing.T) {
	rm := NewRiskManager(newFakeExchange())
	sig := buySignal(5)
	sig.Direction = models.DirectionHold
	if _, err := rm.Plan(context.Background(), sig, planSettings(), 100); !errors.Is(err, ErrInvalidRiskParameters) {
		t.Fatalf("expected ErrInvalidRiskParameters, got %v", err)
	}
}

func TestPlanRejectsZeroATR(t *testing.T) {
	rm := NewRiskManager(newFakeExchange())
	if _, err := rm.Plan(context.Background(), buySignal(0), planSettings(), 100); !errors.Is(err, ErrInvalidRiskParameters) {
		t.Fatalf("expected ErrInvalidRiskParameters, got %v", err)
	}
}

func TestPlanRejectsStopBelowZero(t *testing.T) {
	rm := NewRiskManager(newFakeExchange())
	// entry 100 with stop distance 2*60=120 puts the long stop below zero
	s := planSettings()
	s.ATRMultiplier = 2
	if _, err := rm.Plan(context.Background(), buySignal(60), s, 100); !errors.Is(err, ErrInvalidRiskParameters) {
		t.Fatalf("expected ErrInvalidRiskParameters, got %v", err)
	}
}

func TestPlanRejectsSizeBelowMinimum(t *testing.T) {
	ex := newFakeExchange()
	ex.filters = &models.SymbolFilters{QuantityStep: 0.001, PriceStep: 0.01, MinQuantity: 1000}
	rm := NewRiskManager(ex)
	if _, err := rm.Plan(context.Background(), buySignal(5), planSettings(), 100); !errors.Is(err, ErrInvalidRiskParameters) {
		t.Fatalf("expected ErrInvalidRiskParameters, got %v", err)
	}
}

func TestPlanRoundsToExchangeSteps(t *testing.T) {
	ex := newFakeExchange()
	ex.filters = &models.SymbolFilters{QuantityStep: 0.5, PriceStep: 1, MinQuantity: 0.5}
	rm := NewRiskManager(ex)
	s := planSettings()
	s.TPRatio = 1.11
	plan, err := rm.Plan(context.Background(), buySignal(3.33), s, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.StopLossPrice != 96 { // 96.67 floored to price step 1
		t.Fatalf("stop = %v, want 96", plan.StopLossPrice)
	}
	rem := plan.Size / 0.5
	if rem != float64(int64(rem)) {
		t.Fatalf("size %v not aligned to step", plan.Size)
	}
}

func TestRoundToStep(t *testing.T) {
	if got := roundToStep(0.1234, 0.01); got != 0.12 {
		t.Fatalf("got %v, want 0.12", got)
	}
	if got := roundToStep(5, 0); got != 5 {
		t.Fatalf("got %v, want 5", got)
	}
}
