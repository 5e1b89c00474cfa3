package models

import "time"

// Candle represents one OHLCV interval for a symbol/timeframe.
// Immutable once IsClosed is true.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	IsClosed  bool      `json:"is_closed"`
}

// IndicatorSnapshot holds derived indicator values for the newest candle
// of a timeframe. Snapshots are recomputed, never mutated in place.
type IndicatorSnapshot struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Timestamp  time.Time `json:"timestamp"`
	SMA        float64   `json:"sma"`
	EMAFast    float64   `json:"ema_fast"`
	EMASlow    float64   `json:"ema_slow"`
	RSI        float64   `json:"rsi"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macd_signal"`
	ATR        float64   `json:"atr"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
}

// SymbolFilters carries the exchange precision rules for a symbol.
type SymbolFilters struct {
	Symbol       string  `json:"symbol"`
	MinQuantity  float64 `json:"min_quantity"`
	QuantityStep float64 `json:"quantity_step"`
	PriceStep    float64 `json:"price_step"`
}
