package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	svccache "TradePilot/internal/service/cache"
	"TradePilot/internal/service/ratelimit"
)

type countingMarket struct {
	mu          sync.Mutex
	candleCalls int
	priceCalls  int
}

func (m *countingMarket) GetCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candleCalls++
	return []models.Candle{{Symbol: symbol, Timeframe: string(tf), Close: 100}}, nil
}

func (m *countingMarket) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls++
	return 100.5, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordSignal(string, string)         {}
func (nopMetrics) RecordOrder(string, string)          {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordLastPrice(string, float64)     {}
func (nopMetrics) RecordLatency(string, float64)       {}
func (nopMetrics) RecordConsecutiveLosses(string, int) {}

func TestPipelineCachesCandles(t *testing.T) {
	upstream := &countingMarket{}
	p := NewMarketDataPipeline(upstream, svccache.NewTTLCache(), ratelimit.New(), nopMetrics{},
		WithCandleTTL(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		candles, err := p.GetCandles(ctx, "BTCUSDT", drepo.TF5m, 100)
		if err != nil {
			t.Fatalf("get candles: %v", err)
		}
		if len(candles) != 1 || candles[0].Close != 100 {
			t.Fatalf("candles = %+v", candles)
		}
	}
	if upstream.candleCalls != 1 {
		t.Fatalf("upstream calls = %d, want 1", upstream.candleCalls)
	}
}

func TestPipelineCacheKeyIncludesParams(t *testing.T) {
	upstream := &countingMarket{}
	p := NewMarketDataPipeline(upstream, svccache.NewTTLCache(), ratelimit.New(), nopMetrics{},
		WithCandleTTL(time.Minute))
	ctx := context.Background()

	if _, err := p.GetCandles(ctx, "BTCUSDT", drepo.TF5m, 100); err != nil {
		t.Fatalf("get candles: %v", err)
	}
	if _, err := p.GetCandles(ctx, "BTCUSDT", drepo.TF1h, 100); err != nil {
		t.Fatalf("get candles: %v", err)
	}
	if _, err := p.GetCandles(ctx, "ETHUSDT", drepo.TF5m, 100); err != nil {
		t.Fatalf("get candles: %v", err)
	}
	if upstream.candleCalls != 3 {
		t.Fatalf("upstream calls = %d, want 3 distinct keys", upstream.candleCalls)
	}
}

func TestPipelineCachesPrice(t *testing.T) {
	upstream := &countingMarket{}
	p := NewMarketDataPipeline(upstream, svccache.NewTTLCache(), ratelimit.New(), nopMetrics{},
		WithPriceTTL(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		price, err := p.GetLatestPrice(ctx, "BTCUSDT")
		if err != nil {
			t.Fatalf("get price: %v", err)
		}
		if price != 100.5 {
			t.Fatalf("price = %v", price)
		}
	}
	if upstream.priceCalls != 1 {
		t.Fatalf("upstream calls = %d, want 1", upstream.priceCalls)
	}
}

func TestPipelineThrottles(t *testing.T) {
	upstream := &countingMarket{}
	// Capacity 1, no refill, no caching: second call must be rejected.
	p := NewMarketDataPipeline(upstream, svccache.NewTTLCache(), ratelimit.New(), nopMetrics{},
		WithCandleTTL(time.Nanosecond), WithRateLimit(1, 0))
	ctx := context.Background()

	if _, err := p.GetCandles(ctx, "BTCUSDT", drepo.TF5m, 100); err != nil {
		t.Fatalf("first call: %v", err)
	}
	time.Sleep(time.Millisecond) // let the cached entry expire
	if _, err := p.GetCandles(ctx, "BTCUSDT", drepo.TF5m, 100); err == nil {
		t.Fatalf("expected throttle error")
	}
	if upstream.candleCalls != 1 {
		t.Fatalf("upstream calls = %d, want 1", upstream.candleCalls)
	}
}
