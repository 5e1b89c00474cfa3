package usecase

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"

	"github.com/benbjohnson/clock"
)

// AutoTradingController gates automatic execution: enable flag, active-hours
// window, and the consecutive-loss circuit breaker. Manual operator actions
// bypass this gate.
type AutoTradingController struct {
	settings drepo.SettingsStore
	state    drepo.StateStore
	metrics  drepo.Metrics
	log      *logger.Logger
	clock    clock.Clock
}

// NewAutoTradingController creates the gate.
func NewAutoTradingController(
	settings drepo.SettingsStore,
	state drepo.StateStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	clk clock.Clock,
) *AutoTradingController {
	return &AutoTradingController{settings: settings, state: state, metrics: metrics, log: log, clock: clk}
}

// Allow returns nil when an automatically-generated signal may be executed.
func (c *AutoTradingController) Allow(ctx context.Context) error {
	st, err := c.state.AutoTradingState(ctx)
	if err != nil {
		return fmt.Errorf("auto trading state: %w", err)
	}
	if st.CircuitBreakerTripped {
		return ErrCircuitBreakerTripped
	}
	if !st.Enabled {
		return ErrAutoTradingDisabled
	}

	settings, err := c.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if !settings.InActiveHours(c.clock.Now().UTC().Hour()) {
		return ErrOutsideActiveHours
	}
	return nil
}

// Toggle sets the enable flag. Enabling clears a tripped breaker.
func (c *AutoTradingController) Toggle(ctx context.Context, enabled bool) (models.AutoTradingState, error) {
	st, err := c.state.AutoTradingState(ctx)
	if err != nil {
		return st, fmt.Errorf("auto trading state: %w", err)
	}
	st.Enabled = enabled
	if enabled {
		st.CircuitBreakerTripped = false
	}
	if err := c.state.SetAutoTradingState(ctx, st); err != nil {
		return st, fmt.Errorf("set auto trading state: %w", err)
	}
	c.log.Info("auto trading toggled", logger.Bool("enabled", enabled))
	return st, nil
}

// ResetBreaker clears the breaker and the symbol's loss counter without
// touching the enable flag.
func (c *AutoTradingController) ResetBreaker(ctx context.Context, symbol string) error {
	if err := c.resetCounter(ctx, symbol); err != nil {
		return err
	}
	st, err := c.state.AutoTradingState(ctx)
	if err != nil {
		return fmt.Errorf("auto trading state: %w", err)
	}
	st.CircuitBreakerTripped = false
	if err := c.state.SetAutoTradingState(ctx, st); err != nil {
		return fmt.Errorf("set auto trading state: %w", err)
	}
	c.log.Info("circuit breaker reset", logger.String("symbol", symbol))
	return nil
}

// RecordOutcome updates the consecutive-loss counter after a confirmed
// close. Reaching maxConsecutiveLosses trips the breaker and forces the
// enable flag off; a win resets the counter and clears the trip, and
// re-enables trading only when the reenable_on_win policy is set.
func (c *AutoTradingController) RecordOutcome(ctx context.Context, symbol string, result models.TradeResult) error {
	settings, err := c.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	counter, err := c.state.LossCounter(ctx, symbol)
	if err != nil {
		return fmt.Errorf("loss counter %s: %w", symbol, err)
	}
	st, err := c.state.AutoTradingState(ctx)
	if err != nil {
		return fmt.Errorf("auto trading state: %w", err)
	}

	now := c.clock.Now().UTC()
	counter.Symbol = symbol
	counter.LastOutcomeAt = now

	switch result {
	case models.TradeResultWin:
		counter.Count = 0
		if st.CircuitBreakerTripped {
			st.CircuitBreakerTripped = false
			if settings.ReenableOnWin {
				st.Enabled = true
			}
			c.log.Info("circuit breaker cleared on winning close",
				logger.String("symbol", symbol),
				logger.Bool("re_enabled", st.Enabled))
		}
	case models.TradeResultLoss:
		counter.Count++
		if counter.Count >= settings.MaxConsecutiveLosses && !st.CircuitBreakerTripped {
			st.CircuitBreakerTripped = true
			st.Enabled = false
			st.TrippedAt = now
			c.metrics.RecordError("circuit_breaker_tripped")
			c.log.Error("circuit breaker tripped",
				logger.String("symbol", symbol),
				logger.Int("consecutive_losses", counter.Count))
		}
	}

	if err := c.state.SetLossCounter(ctx, counter); err != nil {
		return fmt.Errorf("set loss counter %s: %w", symbol, err)
	}
	if err := c.state.SetAutoTradingState(ctx, st); err != nil {
		return fmt.Errorf("set auto trading state: %w", err)
	}
	c.metrics.RecordConsecutiveLosses(symbol, counter.Count)
	return nil
}

func (c *AutoTradingController) resetCounter(ctx context.Context, symbol string) error {
	counter, err := c.state.LossCounter(ctx, symbol)
	if err != nil {
		return fmt.Errorf("loss counter %s: %w", symbol, err)
	}
	counter.Symbol = symbol
	counter.Count = 0
	counter.LastOutcomeAt = c.clock.Now().UTC()
	if err := c.state.SetLossCounter(ctx, counter); err != nil {
		return fmt.Errorf("set loss counter %s: %w", symbol, err)
	}
	c.metrics.RecordConsecutiveLosses(symbol, 0)
	return nil
}
