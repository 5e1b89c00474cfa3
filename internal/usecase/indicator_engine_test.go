package usecase

import (
	"errors"
	"math"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("sma = %v, want 3", got)
	}
}

func TestSMAUsesTail(t *testing.T) {
	got, err := SMA([]float64{100, 100, 2, 4}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("sma = %v, want 3", got)
	}
}

func TestSMAInsufficient(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestEMASeedEqualsSMA(t *testing.T) {
	// With exactly n values the EMA is its SMA seed.
	got, err := EMA([]float64{2, 4, 6}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Fatalf("ema = %v, want 4", got)
	}
}

func TestEMARecursion(t *testing.T) {
	// n=3, alpha=0.5. Seed = (2+4+6)/3 = 4, then (8-4)*0.5+4 = 6.
	got, err := EMA([]float64{2, 4, 6, 8}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Fatalf("ema = %v, want 6", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got, err := RSI(values, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100 {
		t.Fatalf("rsi = %v, want 100", got)
	}
}

func TestRSIBalanced(t *testing.T) {
	// Alternating +1/-1 changes give equal average gain and loss.
	values := []float64{10, 11, 10, 11, 10}
	got, err := RSI(values, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 50, 1e-9) {
		t.Fatalf("rsi = %v, want 50", got)
	}
}

func TestRSIInsufficient(t *testing.T) {
	_, err := RSI([]float64{1, 2, 3}, 3)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestMACDFlatSeries(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 100
	}
	macd, signal, err := MACD(values, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(macd, 0, 1e-9) || !almostEqual(signal, 0, 1e-9) {
		t.Fatalf("macd = %v signal = %v, want 0 0", macd, signal)
	}
}

func TestMACDRisingSeriesPositive(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	macd, signal, err := MACD(values, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if macd <= 0 || signal <= 0 {
		t.Fatalf("macd = %v signal = %v, want both positive", macd, signal)
	}
}

func TestMACDPeriodOrder(t *testing.T) {
	if _, _, err := MACD([]float64{1, 2, 3}, 26, 12, 9); err == nil {
		t.Fatalf("expected error for slow <= fast")
	}
}

func TestATRConstantRange(t *testing.T) {
	candles := make([]models.Candle, 16)
	for i := range candles {
		candles[i] = models.Candle{High: 105, Low: 95, Close: 100}
	}
	got, err := ATR(candles, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 10, 1e-9) {
		t.Fatalf("atr = %v, want 10", got)
	}
}

func TestATRUsesGaps(t *testing.T) {
	// A gap above the prior close extends the true range.
	candles := []models.Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 111, Low: 109, Close: 110},
	}
	got, err := ATR(candles, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// TR = max(111-109, |111-100|, |109-100|) = 11.
	if !almostEqual(got, 11, 1e-9) {
		t.Fatalf("atr = %v, want 11", got)
	}
}

func TestATRInsufficient(t *testing.T) {
	_, err := ATR([]models.Candle{{High: 1, Low: 0, Close: 1}}, 1)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestSnapshotInsufficientHistory(t *testing.T) {
	engine := NewIndicatorEngine(DefaultIndicatorWindows())
	candles := make([]models.Candle, 10)
	for i := range candles {
		candles[i] = models.Candle{Symbol: "BTCUSDT", Close: 100, High: 101, Low: 99}
	}
	if _, err := engine.Snapshot(candles); !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestSnapshotCarriesLastCandle(t *testing.T) {
	engine := NewIndicatorEngine(DefaultIndicatorWindows())
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, 60)
	for i := range candles {
		price := 100 + float64(i)*0.1
		candles[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "5m",
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10,
			EndTime:   end.Add(time.Duration(i-59) * 5 * time.Minute),
		}
	}
	snap, err := engine.Snapshot(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Symbol != "BTCUSDT" || snap.Timeframe != "5m" {
		t.Fatalf("unexpected identity %s %s", snap.Symbol, snap.Timeframe)
	}
	if !snap.Timestamp.Equal(end) {
		t.Fatalf("timestamp = %v, want %v", snap.Timestamp, end)
	}
	if snap.Close != candles[59].Close {
		t.Fatalf("close = %v, want %v", snap.Close, candles[59].Close)
	}
	if snap.ATR <= 0 || snap.RSI <= 50 {
		t.Fatalf("unexpected indicators atr=%v rsi=%v", snap.ATR, snap.RSI)
	}
}
