package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/service/symbollock"

	"github.com/benbjohnson/clock"
)

func newTestExecutor(ex *fakeExchange) (*OrderExecutor, *memState, *fakeQueue) {
	state := newMemState()
	queue := &fakeQueue{}
	settings := models.DefaultTradingSettings()
	settings.ActiveHours = nil
	clk := clock.NewMock()
	gate := NewAutoTradingController(newMemSettings(settings), state, nopMetrics{}, testLogger(), clk)
	e := NewOrderExecutor(ex, state, queue, gate, nopMetrics{}, symbollock.New(time.Second), testLogger(), clk)
	return e, state, queue
}

func testPlan() *models.OrderPlan {
	return &models.OrderPlan{
		Symbol:          "BTCUSDT",
		Side:            models.SideLong,
		Size:            0.5,
		EntryPrice:      100,
		StopLossPrice:   95,
		TakeProfitPrice: 107.5,
		StopDistance:    5,
		Leverage:        10,
	}
}

func TestOpenConfirmedFill(t *testing.T) {
	ex := newFakeExchange()
	ex.placeRes = &drepo.OrderResult{OrderID: 7, FillPrice: 100.2, FilledQty: 0.5}
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	pos, err := e.Open(ctx, testPlan())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if pos.EntryPrice != 100.2 || pos.Size != 0.5 {
		t.Fatalf("position = %+v, want fill values", pos)
	}
	if e.State("BTCUSDT") != StateOpen {
		t.Fatalf("state = %s, want OPEN", e.State("BTCUSDT"))
	}
	saved, _ := state.Position(ctx, "BTCUSDT")
	if saved == nil {
		t.Fatalf("position not persisted")
	}
}

func TestOpenDuplicatePosition(t *testing.T) {
	e, state, _ := newTestExecutor(newFakeExchange())
	ctx := context.Background()

	if err := state.SavePosition(ctx, &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 1, EntryPrice: 100}); err != nil {
		t.Fatalf("seed position: %v", err)
	}
	if _, err := e.Open(ctx, testPlan()); !errors.Is(err, ErrPositionExists) {
		t.Fatalf("expected ErrPositionExists, got %v", err)
	}
}

func TestOpenRejectionRevertsToIdle(t *testing.T) {
	ex := newFakeExchange()
	ex.placeErrs = []error{fmt.Errorf("%w: margin insufficient", drepo.ErrOrderRejected)}
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	_, err := e.Open(ctx, testPlan())
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if e.State("BTCUSDT") != StateIdle {
		t.Fatalf("state = %s, want IDLE", e.State("BTCUSDT"))
	}
	if ex.placeCalls != 1 {
		t.Fatalf("rejection retried %d times", ex.placeCalls)
	}
	if pos, _ := state.Position(ctx, "BTCUSDT"); pos != nil {
		t.Fatalf("position persisted after rejection")
	}
}

func TestOpenRetriesTransientError(t *testing.T) {
	ex := newFakeExchange()
	ex.placeErrs = []error{fmt.Errorf("transient")}
	ex.placeRes = &drepo.OrderResult{OrderID: 1, FillPrice: 100, FilledQty: 0.5}
	e, _, _ := newTestExecutor(ex)

	pos, err := e.Open(context.Background(), testPlan())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if pos == nil || ex.placeCalls != 2 {
		t.Fatalf("calls = %d, want 2 with a fill", ex.placeCalls)
	}
}

func TestOpenAmbiguousReconciledAsFilled(t *testing.T) {
	ex := newFakeExchange()
	// Every attempt times out, but the exchange reports the position.
	ex.placeErrs = []error{
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
	}
	ex.positions = []*models.Position{{Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 100.1}}
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	pos, err := e.Open(ctx, testPlan())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if pos.EntryPrice != 100.1 {
		t.Fatalf("entry = %v, want reconciled 100.1", pos.EntryPrice)
	}
	if e.State("BTCUSDT") != StateOpen {
		t.Fatalf("state = %s, want OPEN", e.State("BTCUSDT"))
	}
	if saved, _ := state.Position(ctx, "BTCUSDT"); saved == nil {
		t.Fatalf("reconciled position not persisted")
	}
}

func TestOpenAmbiguousNotFilled(t *testing.T) {
	ex := newFakeExchange()
	ex.placeErrs = []error{
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
	}
	e, _, _ := newTestExecutor(ex)

	if _, err := e.Open(context.Background(), testPlan()); !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if e.State("BTCUSDT") != StateIdle {
		t.Fatalf("state = %s, want IDLE", e.State("BTCUSDT"))
	}
}

func TestCloseWin(t *testing.T) {
	ex := newFakeExchange()
	ex.closeRes = &drepo.OrderResult{OrderID: 2, FillPrice: 110, RealizedPnl: 5}
	e, state, queue := newTestExecutor(ex)
	ctx := context.Background()

	seed := &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if err := state.SavePosition(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	trade, err := e.Close(ctx, "BTCUSDT", models.CloseReasonTP)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if trade.Result != models.TradeResultWin || trade.RealizedPnl != 5 {
		t.Fatalf("trade = %+v, want WIN pnl 5", trade)
	}
	if pos, _ := state.Position(ctx, "BTCUSDT"); pos != nil {
		t.Fatalf("position survived close")
	}
	if e.State("BTCUSDT") != StateIdle {
		t.Fatalf("state = %s, want IDLE", e.State("BTCUSDT"))
	}
	if len(queue.messages) != 1 || queue.messages[0] != MsgClosedTradeArchive {
		t.Fatalf("archive messages = %v", queue.messages)
	}
}

func TestCloseLossUpdatesCounter(t *testing.T) {
	ex := newFakeExchange()
	ex.closeRes = &drepo.OrderResult{OrderID: 2, FillPrice: 95, RealizedPnl: -2.5}
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	seed := &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if err := state.SavePosition(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	trade, err := e.Close(ctx, "BTCUSDT", models.CloseReasonStop)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if trade.Result != models.TradeResultLoss {
		t.Fatalf("result = %s, want LOSS", trade.Result)
	}
	counter, _ := state.LossCounter(ctx, "BTCUSDT")
	if counter.Count != 1 {
		t.Fatalf("counter = %d, want 1", counter.Count)
	}
}

func TestClosePnlFromFillPrice(t *testing.T) {
	ex := newFakeExchange()
	// No realized PnL reported; derive from the fill price.
	ex.closeRes = &drepo.OrderResult{OrderID: 2, FillPrice: 90}
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	seed := &models.Position{Symbol: "BTCUSDT", Side: models.SideShort, Size: 2, EntryPrice: 100, StopLossPrice: 105, TakeProfitPrice: 90}
	if err := state.SavePosition(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	trade, err := e.Close(ctx, "BTCUSDT", models.CloseReasonTP)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if trade.RealizedPnl != 20 { // (100-90)*2
		t.Fatalf("pnl = %v, want 20", trade.RealizedPnl)
	}
}

func TestCloseNoPosition(t *testing.T) {
	e, _, _ := newTestExecutor(newFakeExchange())
	if _, err := e.Close(context.Background(), "BTCUSDT", models.CloseReasonManual); !errors.Is(err, ErrNoPosition) {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

func TestCloseAmbiguousReconciledAsClosed(t *testing.T) {
	ex := newFakeExchange()
	ex.closeErrs = []error{
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
	}
	// Exchange no longer reports the position: the close went through.
	ex.positions = nil
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	seed := &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if err := state.SavePosition(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := e.Close(ctx, "BTCUSDT", models.CloseReasonManual); err != nil {
		t.Fatalf("close: %v", err)
	}
	if pos, _ := state.Position(ctx, "BTCUSDT"); pos != nil {
		t.Fatalf("position survived reconciled close")
	}
}

func TestCloseFailureKeepsPosition(t *testing.T) {
	ex := newFakeExchange()
	ex.closeErrs = []error{
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
		fmt.Errorf("timeout"), fmt.Errorf("timeout"),
	}
	// Exchange still reports the position: the close did not happen.
	ex.positions = []*models.Position{{Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 100}}
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	seed := &models.Position{Symbol: "BTCUSDT", Side: models.SideLong, Size: 0.5, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
	if err := state.SavePosition(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := e.Close(ctx, "BTCUSDT", models.CloseReasonManual); !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if e.State("BTCUSDT") != StateOpen {
		t.Fatalf("state = %s, want OPEN", e.State("BTCUSDT"))
	}
	if pos, _ := state.Position(ctx, "BTCUSDT"); pos == nil {
		t.Fatalf("position lost on failed close")
	}
}

func TestCloseAllContinuesPastFailures(t *testing.T) {
	ex := newFakeExchange()
	e, state, _ := newTestExecutor(ex)
	ctx := context.Background()

	for _, sym := range []string{"BTCUSDT", "ETHUSDT"} {
		seed := &models.Position{Symbol: sym, Side: models.SideLong, Size: 1, EntryPrice: 100, StopLossPrice: 95, TakeProfitPrice: 110}
		if err := state.SavePosition(ctx, seed); err != nil {
			t.Fatalf("seed %s: %v", sym, err)
		}
	}

	trades, err := e.CloseAll(ctx, models.CloseReasonAll)
	if err != nil {
		t.Fatalf("close all: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("closed %d, want 2", len(trades))
	}
	if left, _ := state.Positions(ctx); len(left) != 0 {
		t.Fatalf("%d positions left", len(left))
	}
}
