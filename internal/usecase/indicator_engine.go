package usecase

import (
	"fmt"
	"math"

	"TradePilot/internal/domain/models"
)

// IndicatorWindows holds the lookback lengths used by the engine.
type IndicatorWindows struct {
	SMA        int
	EMAFast    int
	EMASlow    int
	RSI        int
	MACDSignal int
	ATR        int
}

// DefaultIndicatorWindows returns the standard window set.
func DefaultIndicatorWindows() IndicatorWindows {
	return IndicatorWindows{SMA: 20, EMAFast: 12, EMASlow: 26, RSI: 14, MACDSignal: 9, ATR: 14}
}

// IndicatorEngine computes technical indicators from ordered candle
// sequences (oldest to newest). All computations fail with
// ErrInsufficientHistory rather than returning values from short windows.
type IndicatorEngine struct {
	windows IndicatorWindows
}

// NewIndicatorEngine creates an engine with the given windows.
func NewIndicatorEngine(w IndicatorWindows) *IndicatorEngine {
	return &IndicatorEngine{windows: w}
}

// Snapshot computes all indicators for the newest candle of the sequence.
func (e *IndicatorEngine) Snapshot(candles []models.Candle) (*models.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("snapshot: %w", ErrInsufficientHistory)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	sma, err := SMA(closes, e.windows.SMA)
	if err != nil {
		return nil, err
	}
	emaFast, err := EMA(closes, e.windows.EMAFast)
	if err != nil {
		return nil, err
	}
	emaSlow, err := EMA(closes, e.windows.EMASlow)
	if err != nil {
		return nil, err
	}
	rsi, err := RSI(closes, e.windows.RSI)
	if err != nil {
		return nil, err
	}
	macd, macdSignal, err := MACD(closes, e.windows.EMAFast, e.windows.EMASlow, e.windows.MACDSignal)
	if err != nil {
		return nil, err
	}
	atr, err := ATR(candles, e.windows.ATR)
	if err != nil {
		return nil, err
	}

	last := candles[len(candles)-1]
	return &models.IndicatorSnapshot{
		Symbol:     last.Symbol,
		Timeframe:  last.Timeframe,
		Timestamp:  last.EndTime,
		SMA:        sma,
		EMAFast:    emaFast,
		EMASlow:    emaSlow,
		RSI:        rsi,
		MACD:       macd,
		MACDSignal: macdSignal,
		ATR:        atr,
		Close:      last.Close,
		Volume:     last.Volume,
	}, nil
}

// SMA is the arithmetic mean of the last n values.
func SMA(values []float64, n int) (float64, error) {
	if n <= 0 || len(values) < n {
		return 0, fmt.Errorf("sma(%d): have %d values: %w", n, len(values), ErrInsufficientHistory)
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), nil
}

// EMA is the recursive exponential average with factor 2/(n+1), seeded by
// the SMA of the first n values.
func EMA(values []float64, n int) (float64, error) {
	series, err := emaSeries(values, n)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// emaSeries returns EMA values for indexes n-1..len(values)-1.
func emaSeries(values []float64, n int) ([]float64, error) {
	if n <= 0 || len(values) < n {
		return nil, fmt.Errorf("ema(%d): have %d values: %w", n, len(values), ErrInsufficientHistory)
	}
	alpha := 2.0 / float64(n+1)
	seed := 0.0
	for _, v := range values[:n] {
		seed += v
	}
	seed /= float64(n)

	out := make([]float64, 0, len(values)-n+1)
	out = append(out, seed)
	ema := seed
	for _, v := range values[n:] {
		ema = (v-ema)*alpha + ema
		out = append(out, ema)
	}
	return out, nil
}

// RSI computes Wilder's relative strength index over n periods. When the
// average loss is zero RSI is 100.
func RSI(values []float64, n int) (float64, error) {
	if n <= 0 || len(values) < n+1 {
		return 0, fmt.Errorf("rsi(%d): have %d values: %w", n, len(values), ErrInsufficientHistory)
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= n; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)

	// Wilder smoothing for the remainder of the series.
	for i := n + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	return 100 - 100/(1+avgGain/avgLoss), nil
}

// MACD returns EMA(fast)-EMA(slow) and its signal line, the EMA(signalN)
// of the MACD series.
func MACD(values []float64, fast, slow, signalN int) (macd, signal float64, err error) {
	if slow <= fast {
		return 0, 0, fmt.Errorf("macd: slow period %d must exceed fast %d", slow, fast)
	}
	fastSeries, err := emaSeries(values, fast)
	if err != nil {
		return 0, 0, err
	}
	slowSeries, err := emaSeries(values, slow)
	if err != nil {
		return 0, 0, err
	}

	// Both series end at the newest value; align tails.
	n := len(slowSeries)
	macdSeries := make([]float64, n)
	offset := len(fastSeries) - n
	for i := 0; i < n; i++ {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := emaSeries(macdSeries, signalN)
	if err != nil {
		return 0, 0, fmt.Errorf("macd signal: %w", ErrInsufficientHistory)
	}
	return macdSeries[n-1], signalSeries[len(signalSeries)-1], nil
}

// ATR is the Wilder-smoothed average true range over n periods.
func ATR(candles []models.Candle, n int) (float64, error) {
	if n <= 0 || len(candles) < n+1 {
		return 0, fmt.Errorf("atr(%d): have %d candles: %w", n, len(candles), ErrInsufficientHistory)
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		trs = append(trs, math.Max(hl, math.Max(hc, lc)))
	}

	atr := 0.0
	for _, tr := range trs[:n] {
		atr += tr
	}
	atr /= float64(n)
	for _, tr := range trs[n:] {
		atr = (atr*float64(n-1) + tr) / float64(n)
	}
	return atr, nil
}
