package usecase

import (
	"context"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

// CandleCollector consumes the live candle stream, persists closed candles
// and feeds them to the trading pipeline.
type CandleCollector struct {
	stream  drepo.CandleStream
	store   drepo.CandleStore
	trading *TradingService
	metrics drepo.Metrics
	log     *logger.Logger
	shortTF drepo.Timeframe
}

// NewCandleCollector creates a collector. Evaluation triggers only on
// closed candles of the short timeframe.
func NewCandleCollector(
	stream drepo.CandleStream,
	store drepo.CandleStore,
	trading *TradingService,
	metrics drepo.Metrics,
	log *logger.Logger,
	shortTF drepo.Timeframe,
) *CandleCollector {
	return &CandleCollector{
		stream:  stream,
		store:   store,
		trading: trading,
		metrics: metrics,
		log:     log,
		shortTF: shortTF,
	}
}

// IsConnected returns true if the candle stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes and begins consuming in the background.
func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	candleCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, candleCh, errCh)
	return nil
}

func (c *CandleCollector) consume(ctx context.Context, candleCh <-chan *models.Candle, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err != nil {
				c.metrics.RecordError("stream")
				c.log.Warn("candle stream error, reconnecting", logger.Error(err))
			}
			// The stream's read loop closes both channels when it exits,
			// so reconnecting must also re-acquire fresh ones.
			candleCh, errCh = c.reacquire(ctx)
			if candleCh == nil {
				return
			}
		case candle, ok := <-candleCh:
			if !ok {
				candleCh, errCh = c.reacquire(ctx)
				if candleCh == nil {
					return
				}
				continue
			}
			if candle == nil {
				continue
			}
			c.metrics.RecordLastPrice(candle.Symbol, candle.Close)
			if !candle.IsClosed {
				continue
			}
			if c.store != nil {
				if err := c.store.StoreCandle(ctx, candle); err != nil {
					c.metrics.RecordError("candle_store")
					c.log.Warn("store candle", logger.String("symbol", candle.Symbol), logger.Error(err))
				}
			}
			if candle.Timeframe == string(c.shortTF) {
				if err := c.trading.EvaluateAndTrade(ctx, candle.Symbol); err != nil {
					c.metrics.RecordError("evaluate")
					c.log.Error("evaluate symbol", logger.String("symbol", candle.Symbol), logger.Error(err))
				}
			}
		}
	}
}

// reacquire reconnects the stream and returns a fresh channel pair. It
// retries until the connection comes back or the context ends; nil channels
// mean the context ended.
func (c *CandleCollector) reacquire(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		default:
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			c.log.Error("candle stream reconnect", logger.Error(err))
			continue
		}
		return c.stream.Read(ctx)
	}
}

// Shutdown closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	return c.stream.Close()
}
