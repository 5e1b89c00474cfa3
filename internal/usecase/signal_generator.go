package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"

	"github.com/benbjohnson/clock"
)

const (
	// candleLookback is how many candles are requested per timeframe; it
	// comfortably covers the slow EMA plus the MACD signal window.
	candleLookback = 100

	// momentumWindow is the short-timeframe span for the price-change check.
	momentumWindow = 5
	// volumeAvgWindow is the rolling-average span for the volume-spike check.
	volumeAvgWindow = 20

	scoreCutoff       = 0.5
	strengthIncrement = 0.5
	multiplierCap     = 2.0
	scoreNormalizer   = 2.0
)

// SignalGenerator combines indicators across timeframes into a directional,
// confidence-scored signal. The trend timeframe decides direction; the short
// timeframe only scales confidence.
type SignalGenerator struct {
	market  drepo.MarketData
	engine  *IndicatorEngine
	state   drepo.StateStore
	metrics drepo.Metrics
	clock   clock.Clock

	shortTF drepo.Timeframe
	trendTF drepo.Timeframe
}

// NewSignalGenerator creates a generator evaluating shortTF for timing and
// trendTF for direction.
func NewSignalGenerator(
	market drepo.MarketData,
	engine *IndicatorEngine,
	state drepo.StateStore,
	metrics drepo.Metrics,
	clk clock.Clock,
	shortTF, trendTF drepo.Timeframe,
) *SignalGenerator {
	return &SignalGenerator{
		market:  market,
		engine:  engine,
		state:   state,
		metrics: metrics,
		clock:   clk,
		shortTF: shortTF,
		trendTF: trendTF,
	}
}

// Generate evaluates both timeframes and produces a signal for symbol.
// BUY/SELL emission is rate limited per MinSignalIntervalMinutes; a
// suppressed evaluation returns a HOLD signal instead.
func (g *SignalGenerator) Generate(ctx context.Context, symbol string, settings models.TradingSettings) (*models.Signal, error) {
	now := g.clock.Now().UTC()

	shortCandles, err := g.market.GetCandles(ctx, symbol, g.shortTF, candleLookback)
	if err != nil {
		return nil, fmt.Errorf("short candles %s: %w", symbol, err)
	}
	trendCandles, err := g.market.GetCandles(ctx, symbol, g.trendTF, candleLookback)
	if err != nil {
		return nil, fmt.Errorf("trend candles %s: %w", symbol, err)
	}

	shortSnap, err := g.engine.Snapshot(closedOnly(shortCandles))
	if err != nil {
		return nil, err
	}
	trendSnap, err := g.engine.Snapshot(closedOnly(trendCandles))
	if err != nil {
		return nil, err
	}

	trendScore := trendDirection(trendSnap)
	multiplier, err := g.strengthMultiplier(closedOnly(shortCandles), settings)
	if err != nil {
		return nil, err
	}

	score := trendScore * multiplier
	direction := models.DirectionHold
	switch {
	case score > scoreCutoff:
		direction = models.DirectionBuy
	case score < -scoreCutoff:
		direction = models.DirectionSell
	}

	sig := &models.Signal{
		Symbol:                 symbol,
		Direction:              direction,
		Confidence:             math.Min(1, math.Abs(score)/scoreNormalizer),
		GeneratedAt:            now,
		ContributingTimeframes: []string{string(g.shortTF), string(g.trendTF)},
		Snapshot:               shortSnap,
		TrendScore:             trendScore,
		Multiplier:             multiplier,
		Score:                  score,
	}

	if sig.Actionable() {
		suppressed, err := g.rateLimited(ctx, symbol, settings, now)
		if err != nil {
			return nil, err
		}
		if suppressed {
			sig.Direction = models.DirectionHold
			sig.Message = "suppressed: min signal interval not elapsed"
		} else if err := g.state.SetLastSignalAt(ctx, symbol, now); err != nil {
			return nil, fmt.Errorf("record signal time %s: %w", symbol, err)
		}
	}

	g.metrics.RecordSignal(symbol, string(sig.Direction))
	return sig, nil
}

// ShortSnapshot computes a fresh short-timeframe indicator snapshot.
// Used for sizing operator-submitted signals that arrive without one.
func (g *SignalGenerator) ShortSnapshot(ctx context.Context, symbol string) (*models.IndicatorSnapshot, error) {
	candles, err := g.market.GetCandles(ctx, symbol, g.shortTF, candleLookback)
	if err != nil {
		return nil, fmt.Errorf("short candles %s: %w", symbol, err)
	}
	return g.engine.Snapshot(closedOnly(candles))
}

func (g *SignalGenerator) rateLimited(ctx context.Context, symbol string, settings models.TradingSettings, now time.Time) (bool, error) {
	last, err := g.state.LastSignalAt(ctx, symbol)
	if err != nil {
		return false, fmt.Errorf("last signal time %s: %w", symbol, err)
	}
	if last.IsZero() {
		return false, nil
	}
	interval := time.Duration(settings.MinSignalIntervalMinutes) * time.Minute
	return now.Sub(last) < interval, nil
}

// strengthMultiplier scores short-timeframe timing: base 1.0, plus a fixed
// increment per crossed threshold (volume spike, price momentum), capped.
func (g *SignalGenerator) strengthMultiplier(candles []models.Candle, settings models.TradingSettings) (float64, error) {
	if len(candles) < volumeAvgWindow+1 || len(candles) < momentumWindow+1 {
		return 0, fmt.Errorf("strength multiplier: have %d candles: %w", len(candles), ErrInsufficientHistory)
	}

	volumes := make([]float64, len(candles)-1)
	for i, c := range candles[:len(candles)-1] {
		volumes[i] = c.Volume
	}
	avgVolume, err := SMA(volumes, volumeAvgWindow)
	if err != nil {
		return 0, err
	}

	multiplier := 1.0
	last := candles[len(candles)-1]
	if avgVolume > 0 && last.Volume/avgVolume >= settings.VolumeSpikeThreshold {
		multiplier += strengthIncrement
	}

	ref := candles[len(candles)-1-momentumWindow].Close
	if ref > 0 && math.Abs(last.Close-ref)/ref >= settings.PriceMomentumThreshold {
		multiplier += strengthIncrement
	}

	if multiplier > multiplierCap {
		multiplier = multiplierCap
	}
	return multiplier, nil
}

// trendDirection returns +1 when trend indicators agree bullish, -1 when
// they agree bearish, 0 otherwise.
func trendDirection(snap *models.IndicatorSnapshot) float64 {
	bullish := snap.EMAFast > snap.EMASlow && snap.MACD > snap.MACDSignal
	bearish := snap.EMAFast < snap.EMASlow && snap.MACD < snap.MACDSignal
	switch {
	case bullish:
		return 1
	case bearish:
		return -1
	default:
		return 0
	}
}

func closedOnly(candles []models.Candle) []models.Candle {
	out := candles[:0:0]
	for _, c := range candles {
		if c.IsClosed {
			out = append(out, c)
		}
	}
	return out
}
