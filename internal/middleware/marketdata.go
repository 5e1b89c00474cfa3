package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	svccache "TradePilot/internal/service/cache"
	"TradePilot/internal/service/ratelimit"
	pkgcache "TradePilot/pkg/cache"
)

// MarketDataPipeline is a middleware between the decision pipeline and the
// exchange REST API. It caches recent responses, throttles per-symbol call
// rates against the exchange weight limits, and records request metrics.
type MarketDataPipeline struct {
	next    drepo.MarketData
	cache   svccache.BytesCache
	limiter *ratelimit.Limiter
	metrics drepo.Metrics

	candleTTL  time.Duration
	priceTTL   time.Duration
	capacity   float64
	refillRate float64
}

type PipelineOption func(*MarketDataPipeline)

// WithCandleTTL sets how long a candle response may be served from cache.
func WithCandleTTL(d time.Duration) PipelineOption {
	return func(p *MarketDataPipeline) {
		if d > 0 {
			p.candleTTL = d
		}
	}
}

// WithPriceTTL sets how long a price response may be served from cache.
func WithPriceTTL(d time.Duration) PipelineOption {
	return func(p *MarketDataPipeline) {
		if d > 0 {
			p.priceTTL = d
		}
	}
}

// WithRateLimit sets the per-symbol token bucket for upstream calls.
func WithRateLimit(capacity, refillPerSec float64) PipelineOption {
	return func(p *MarketDataPipeline) {
		if capacity > 0 && refillPerSec > 0 {
			p.capacity = capacity
			p.refillRate = refillPerSec
		}
	}
}

// NewMarketDataPipeline wraps a MarketData implementation.
func NewMarketDataPipeline(next drepo.MarketData, cache svccache.BytesCache, limiter *ratelimit.Limiter, metrics drepo.Metrics, opts ...PipelineOption) *MarketDataPipeline {
	p := &MarketDataPipeline{
		next:       next,
		cache:      cache,
		limiter:    limiter,
		metrics:    metrics,
		candleTTL:  5 * time.Second,
		priceTTL:   time.Second,
		capacity:   10,
		refillRate: 5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MarketDataPipeline) GetCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	key := pkgcache.GenerateKeyWithParams("md:candles", symbol, string(tf), limit)
	if b, ok, err := p.cache.GetBytes(key); err == nil && ok {
		var candles []models.Candle
		if err := json.Unmarshal(b, &candles); err == nil {
			return candles, nil
		}
	}

	if !p.limiter.Allow("candles:"+symbol, p.capacity, p.refillRate) {
		p.metrics.RecordError("marketdata_throttle")
		return nil, fmt.Errorf("candles %s/%s: upstream rate limited", symbol, tf)
	}

	start := time.Now()
	candles, err := p.next.GetCandles(ctx, symbol, tf, limit)
	p.metrics.RecordLatency("marketdata_candles", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordError("marketdata_candles")
		return nil, err
	}

	if b, err := json.Marshal(candles); err == nil {
		_ = p.cache.SetBytes(key, b, p.candleTTL)
	}
	return candles, nil
}

func (p *MarketDataPipeline) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	key := pkgcache.GenerateKey("md:price", symbol)
	if b, ok, err := p.cache.GetBytes(key); err == nil && ok {
		var price float64
		if err := json.Unmarshal(b, &price); err == nil {
			return price, nil
		}
	}

	if !p.limiter.Allow("price:"+symbol, p.capacity, p.refillRate) {
		p.metrics.RecordError("marketdata_throttle")
		return 0, fmt.Errorf("price %s: upstream rate limited", symbol)
	}

	start := time.Now()
	price, err := p.next.GetLatestPrice(ctx, symbol)
	p.metrics.RecordLatency("marketdata_price", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordError("marketdata_price")
		return 0, err
	}

	if b, err := json.Marshal(price); err == nil {
		_ = p.cache.SetBytes(key, b, p.priceTTL)
	}
	return price, nil
}

var _ drepo.MarketData = (*MarketDataPipeline)(nil)
