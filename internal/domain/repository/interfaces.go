package repository

import (
	"context"
	"errors"
	"time"

	"TradePilot/internal/domain/models"
)

// ErrOrderRejected marks an explicit exchange rejection. Rejections are
// final and must not be retried; transient transport errors are returned
// as plain errors and may be retried.
var ErrOrderRejected = errors.New("exchange rejected order")

// ErrSettingsValidation marks a settings update that violates a field's
// allowed range or names an unknown key. The stored settings are unchanged.
var ErrSettingsValidation = errors.New("settings validation failed")

// MarketData provides candle history and latest prices. Implementations are
// free to cache or decorate; the core is agnostic to the transport.
type MarketData interface {
	GetCandles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderResult is the exchange's answer to an order request.
type OrderResult struct {
	OrderID     int64
	FillPrice   float64
	FilledQty   float64
	RealizedPnl float64
}

// Exchange is the trading API of the external exchange.
type Exchange interface {
	GetOpenPositions(ctx context.Context) ([]*models.Position, error)
	PlaceOrder(ctx context.Context, plan *models.OrderPlan) (*OrderResult, error)
	ClosePosition(ctx context.Context, symbol string) (*OrderResult, error)
	GetSymbolFilters(ctx context.Context, symbol string) (*models.SymbolFilters, error)
}

// SettingsStore persists TradingSettings. Updates are atomic
// read-modify-write operations and validated before persisting.
type SettingsStore interface {
	Get(ctx context.Context) (models.TradingSettings, error)
	UpdateSetting(ctx context.Context, key string, value interface{}) (models.TradingSettings, error)
	Replace(ctx context.Context, s models.TradingSettings) error
	ResetToDefaults(ctx context.Context) (models.TradingSettings, error)
}

// StateStore persists auto-trading state, loss counters, open position
// records and per-symbol signal emission times.
type StateStore interface {
	AutoTradingState(ctx context.Context) (models.AutoTradingState, error)
	SetAutoTradingState(ctx context.Context, st models.AutoTradingState) error

	LossCounter(ctx context.Context, symbol string) (models.LossCounter, error)
	SetLossCounter(ctx context.Context, c models.LossCounter) error

	LastSignalAt(ctx context.Context, symbol string) (time.Time, error)
	SetLastSignalAt(ctx context.Context, symbol string, t time.Time) error

	Position(ctx context.Context, symbol string) (*models.Position, error)
	Positions(ctx context.Context) ([]*models.Position, error)
	SavePosition(ctx context.Context, p *models.Position) error
	DeletePosition(ctx context.Context, symbol string) error
}

// CandleStream is a live feed of candle updates from the exchange.
type CandleStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// CandleStore persists closed candles for history queries.
type CandleStore interface {
	StoreCandle(ctx context.Context, c *models.Candle) error
	Candles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
	CandlesRange(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]models.Candle, error)
}

// SignalHistory appends generated signals and closed trades to durable storage.
type SignalHistory interface {
	AppendSignal(ctx context.Context, s *models.Signal) error
	AppendClosedTrade(ctx context.Context, t *models.ClosedTrade) error
	RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.Signal, error)
}

// Publisher emits signal events to the message bus.
type Publisher interface {
	PublishSignal(ctx context.Context, s *models.Signal) error
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordSignal(symbol string, direction string)
	RecordOrder(symbol string, outcome string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordConsecutiveLosses(symbol string, count int)
}
