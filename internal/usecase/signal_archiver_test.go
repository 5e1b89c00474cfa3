package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
)

func TestArchiverPersistsEvent(t *testing.T) {
	history := &fakeHistory{}
	a := NewSignalArchiver("signals", history, nopMetrics{})

	if a.Topic() != "signals" {
		t.Fatalf("topic = %s", a.Topic())
	}

	sig := &models.Signal{
		Symbol:                 "BTCUSDT",
		Direction:              models.DirectionBuy,
		Confidence:             0.5,
		Score:                  1,
		GeneratedAt:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ContributingTimeframes: []string{"5m", "1h"},
	}
	b, err := json.Marshal(sig.Event())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := a.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(history.signals) != 1 {
		t.Fatalf("stored %d signals, want 1", len(history.signals))
	}
	got := history.signals[0]
	if got.Symbol != "BTCUSDT" || got.Direction != models.DirectionBuy {
		t.Fatalf("stored = %+v", got)
	}
	if !got.GeneratedAt.Equal(sig.GeneratedAt) {
		t.Fatalf("generated_at = %v, want %v", got.GeneratedAt, sig.GeneratedAt)
	}
}

func TestArchiverRejectsMalformedPayload(t *testing.T) {
	history := &fakeHistory{}
	a := NewSignalArchiver("signals", history, nopMetrics{})

	if err := a.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if len(history.signals) != 0 {
		t.Fatalf("malformed payload stored")
	}
}

func TestClosedTradeArchiveJob(t *testing.T) {
	history := &fakeHistory{}
	job := NewClosedTradeArchiveJob(history)

	if job.Type() != MsgClosedTradeArchive {
		t.Fatalf("type = %s", job.Type())
	}

	trade := models.ClosedTrade{
		Symbol:      "BTCUSDT",
		Side:        models.SideLong,
		Reason:      models.CloseReasonStop,
		Result:      models.TradeResultLoss,
		RealizedPnl: -2.5,
		ClosePrice:  95,
		ClosedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	// Direct struct payload, as enqueued in-process.
	if err := job.Handle(context.Background(), trade); err != nil {
		t.Fatalf("handle struct: %v", err)
	}

	// Map payload, as decoded from the Redis queue.
	raw, _ := json.Marshal(trade)
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := job.Handle(context.Background(), m); err != nil {
		t.Fatalf("handle map: %v", err)
	}

	if len(history.trades) != 2 {
		t.Fatalf("stored %d trades, want 2", len(history.trades))
	}
	if history.trades[1].Result != models.TradeResultLoss {
		t.Fatalf("stored result = %s", history.trades[1].Result)
	}
}
