package usecase

import (
	"context"
	"errors"
	"fmt"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

// TradingService orchestrates the decision pipeline: signal generation,
// the auto-trading gate, risk sizing and order execution. It is the entry
// point used by the command surface and by the candle-driven evaluation
// loop.
type TradingService struct {
	generator *SignalGenerator
	risk      *RiskManager
	executor  *OrderExecutor
	gate      *AutoTradingController
	market    drepo.MarketData
	settings  drepo.SettingsStore
	state     drepo.StateStore
	history   drepo.SignalHistory
	publisher drepo.Publisher
	log       *logger.Logger
}

// NewTradingService wires the pipeline.
func NewTradingService(
	generator *SignalGenerator,
	risk *RiskManager,
	executor *OrderExecutor,
	gate *AutoTradingController,
	market drepo.MarketData,
	settings drepo.SettingsStore,
	state drepo.StateStore,
	history drepo.SignalHistory,
	publisher drepo.Publisher,
	log *logger.Logger,
) *TradingService {
	return &TradingService{
		generator: generator,
		risk:      risk,
		executor:  executor,
		gate:      gate,
		market:    market,
		settings:  settings,
		state:     state,
		history:   history,
		publisher: publisher,
		log:       log,
	}
}

// GenerateSignal evaluates symbol's timeframes and publishes the signal to
// the bus. The archiver consumer persists published signals to history.
// The signal is returned regardless of direction.
func (s *TradingService) GenerateSignal(ctx context.Context, symbol string) (*models.Signal, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	sig, err := s.generator.Generate(ctx, symbol, settings)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSignal(ctx, sig); err != nil {
			s.log.Warn("publish signal", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return sig, nil
}

// ProcessSignal executes an actionable signal through the gate, risk sizing
// and the order lifecycle. Gate refusals are not errors to the evaluation
// loop: the signal stays logged, nothing executes.
func (s *TradingService) ProcessSignal(ctx context.Context, sig *models.Signal) (*models.Position, error) {
	if !sig.Actionable() {
		return nil, nil
	}

	if err := s.gate.Allow(ctx); err != nil {
		if errors.Is(err, ErrAutoTradingDisabled) || errors.Is(err, ErrOutsideActiveHours) || errors.Is(err, ErrCircuitBreakerTripped) {
			s.log.Info("signal suppressed by gate",
				logger.String("symbol", sig.Symbol),
				logger.String("direction", string(sig.Direction)),
				logger.String("reason", err.Error()))
			return nil, err
		}
		return nil, err
	}
	return s.execute(ctx, sig)
}

// ExecuteManual runs risk sizing and execution for an operator-submitted
// signal, bypassing the auto-trading gate.
func (s *TradingService) ExecuteManual(ctx context.Context, sig *models.Signal) (*models.Position, error) {
	if !sig.Actionable() {
		return nil, fmt.Errorf("manual execute %s: direction %s: %w", sig.Symbol, sig.Direction, ErrInvalidRiskParameters)
	}
	return s.execute(ctx, sig)
}

// ProcessExternal sizes and executes an operator-submitted direction. The
// indicator snapshot is recomputed so stops reflect current volatility.
func (s *TradingService) ProcessExternal(ctx context.Context, symbol string, direction models.Direction, confidence float64) (*models.Position, error) {
	snap, err := s.generator.ShortSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	sig := &models.Signal{
		Symbol:      symbol,
		Direction:   direction,
		Confidence:  confidence,
		GeneratedAt: snap.Timestamp,
		Snapshot:    snap,
	}
	return s.ExecuteManual(ctx, sig)
}

func (s *TradingService) execute(ctx context.Context, sig *models.Signal) (*models.Position, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	price, err := s.market.GetLatestPrice(ctx, sig.Symbol)
	if err != nil {
		return nil, fmt.Errorf("latest price %s: %w", sig.Symbol, err)
	}

	plan, err := s.risk.Plan(ctx, sig, settings, price)
	if err != nil {
		return nil, err
	}
	return s.executor.Open(ctx, plan)
}

// EvaluateAndTrade is the closed-candle entry point: generate a signal and,
// when the gate permits, execute it. Gate refusals and HOLDs are normal.
func (s *TradingService) EvaluateAndTrade(ctx context.Context, symbol string) error {
	sig, err := s.GenerateSignal(ctx, symbol)
	if err != nil {
		return err
	}
	if !sig.Actionable() {
		return nil
	}
	_, err = s.ProcessSignal(ctx, sig)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAutoTradingDisabled),
		errors.Is(err, ErrOutsideActiveHours),
		errors.Is(err, ErrCircuitBreakerTripped),
		errors.Is(err, ErrPositionExists):
		return nil
	default:
		return err
	}
}

// ClosePosition closes one symbol's position, or every open position when
// symbol is "all".
func (s *TradingService) ClosePosition(ctx context.Context, symbol string, reason models.CloseReason) ([]*models.ClosedTrade, error) {
	if symbol == "all" {
		return s.executor.CloseAll(ctx, reason)
	}
	trade, err := s.executor.Close(ctx, symbol, reason)
	if err != nil {
		return nil, err
	}
	return []*models.ClosedTrade{trade}, nil
}

// Positions lists tracked open positions.
func (s *TradingService) Positions(ctx context.Context) ([]*models.Position, error) {
	return s.state.Positions(ctx)
}

// Status summarizes the trading state for the command surface.
func (s *TradingService) Status(ctx context.Context) (map[string]interface{}, error) {
	st, err := s.state.AutoTradingState(ctx)
	if err != nil {
		return nil, fmt.Errorf("auto trading state: %w", err)
	}
	positions, err := s.state.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	return map[string]interface{}{
		"auto_trading_enabled":    st.Enabled,
		"circuit_breaker_tripped": st.CircuitBreakerTripped,
		"active_positions":        len(positions),
	}, nil
}

// Gate exposes the controller for the command surface.
func (s *TradingService) Gate() *AutoTradingController { return s.gate }

// RecentSignals returns the newest archived signals for a symbol.
func (s *TradingService) RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.Signal, error) {
	return s.history.RecentSignals(ctx, symbol, limit)
}
