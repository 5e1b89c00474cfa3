package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/service/symbollock"
	"TradePilot/pkg/logger"
	pkgqueue "TradePilot/pkg/queue"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
)

// ExecState is the per-symbol order lifecycle state.
type ExecState string

const (
	StateIdle         ExecState = "IDLE"
	StatePendingOpen  ExecState = "PENDING_OPEN"
	StateOpen         ExecState = "OPEN"
	StatePendingClose ExecState = "PENDING_CLOSE"
)

const (
	executorMaxRetries      = 3
	executorInitialInterval = 200 * time.Millisecond
)

// OrderExecutor owns the per-symbol order/position lifecycle state machine
// and talks to the exchange. State advances only on exchange-confirmed
// responses; ambiguous outcomes are reconciled against the exchange before
// the next transition.
type OrderExecutor struct {
	exchange drepo.Exchange
	state    drepo.StateStore
	archive  pkgqueue.QueueService
	gate     *AutoTradingController
	metrics  drepo.Metrics
	locks    *symbollock.Registry
	log      *logger.Logger
	clock    clock.Clock

	mu     sync.Mutex
	states map[string]ExecState
}

// NewOrderExecutor creates an executor.
func NewOrderExecutor(
	exchange drepo.Exchange,
	state drepo.StateStore,
	archive pkgqueue.QueueService,
	gate *AutoTradingController,
	metrics drepo.Metrics,
	locks *symbollock.Registry,
	log *logger.Logger,
	clk clock.Clock,
) *OrderExecutor {
	return &OrderExecutor{
		exchange: exchange,
		state:    state,
		archive:  archive,
		gate:     gate,
		metrics:  metrics,
		locks:    locks,
		log:      log,
		clock:    clk,
		states:   make(map[string]ExecState),
	}
}

// State returns the lifecycle state for symbol.
func (e *OrderExecutor) State(symbol string) ExecState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[symbol]; ok {
		return s
	}
	return StateIdle
}

func (e *OrderExecutor) setState(symbol string, s ExecState) {
	e.mu.Lock()
	e.states[symbol] = s
	e.mu.Unlock()
}

// Open submits the plan and, on a confirmed fill, records the position.
// IDLE → PENDING_OPEN → OPEN; rejection or exhausted retries revert to IDLE.
func (e *OrderExecutor) Open(ctx context.Context, plan *models.OrderPlan) (*models.Position, error) {
	var pos *models.Position
	err := e.locks.Do(ctx, plan.Symbol, func() error {
		var err error
		pos, err = e.openLocked(ctx, plan)
		return err
	})
	if errors.Is(err, symbollock.ErrBusy) {
		return nil, fmt.Errorf("open %s: %w", plan.Symbol, ErrConcurrentModification)
	}
	return pos, err
}

func (e *OrderExecutor) openLocked(ctx context.Context, plan *models.OrderPlan) (*models.Position, error) {
	if existing, err := e.state.Position(ctx, plan.Symbol); err != nil {
		return nil, fmt.Errorf("open %s: load position: %w", plan.Symbol, err)
	} else if existing != nil {
		return nil, fmt.Errorf("open %s: %w", plan.Symbol, ErrPositionExists)
	}

	e.setState(plan.Symbol, StatePendingOpen)

	res, err := e.withRetry(ctx, func() (*drepo.OrderResult, error) {
		return e.exchange.PlaceOrder(ctx, plan)
	})
	if err != nil {
		if errors.Is(err, drepo.ErrOrderRejected) {
			e.setState(plan.Symbol, StateIdle)
			e.metrics.RecordOrder(plan.Symbol, "rejected")
			return nil, fmt.Errorf("open %s: %w: %v", plan.Symbol, ErrExecutionFailed, err)
		}
		// Outcome indeterminate after retries: ask the exchange what
		// actually happened before touching local state.
		filled, recErr := e.reconcileOpen(ctx, plan.Symbol)
		if recErr != nil {
			e.setState(plan.Symbol, StateIdle)
			return nil, fmt.Errorf("open %s: reconcile: %w", plan.Symbol, recErr)
		}
		if filled == nil {
			e.setState(plan.Symbol, StateIdle)
			e.metrics.RecordOrder(plan.Symbol, "failed")
			return nil, fmt.Errorf("open %s: %w: %v", plan.Symbol, ErrExecutionFailed, err)
		}
		res = filled
	}

	pos := &models.Position{
		Symbol:          plan.Symbol,
		Side:            plan.Side,
		Size:            res.FilledQty,
		EntryPrice:      res.FillPrice,
		StopLossPrice:   plan.StopLossPrice,
		TakeProfitPrice: plan.TakeProfitPrice,
		OpenedAt:        e.clock.Now().UTC(),
	}
	if pos.Size == 0 {
		pos.Size = plan.Size
	}
	if pos.EntryPrice == 0 {
		pos.EntryPrice = plan.EntryPrice
	}

	if err := e.state.SavePosition(ctx, pos); err != nil {
		e.setState(plan.Symbol, StateIdle)
		return nil, fmt.Errorf("open %s: save position: %w", plan.Symbol, err)
	}
	e.setState(plan.Symbol, StateOpen)
	e.metrics.RecordOrder(plan.Symbol, "opened")
	e.log.Info("position opened",
		logger.String("symbol", plan.Symbol),
		logger.String("side", string(plan.Side)),
		logger.Any("entry", pos.EntryPrice),
		logger.Any("size", pos.Size),
		logger.Any("stop_loss", pos.StopLossPrice),
		logger.Any("take_profit", pos.TakeProfitPrice))
	return pos, nil
}

// reconcileOpen asks the exchange whether the ambiguous open actually
// filled. A reported position for the symbol counts as a confirmed fill.
func (e *OrderExecutor) reconcileOpen(ctx context.Context, symbol string) (*drepo.OrderResult, error) {
	positions, err := e.exchange.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		if p.Symbol == symbol {
			return &drepo.OrderResult{FillPrice: p.EntryPrice, FilledQty: p.Size}, nil
		}
	}
	return nil, nil
}

// Close requests the position's close. OPEN → PENDING_CLOSE → IDLE; the
// position is destroyed and the outcome recorded only on exchange
// confirmation.
func (e *OrderExecutor) Close(ctx context.Context, symbol string, reason models.CloseReason) (*models.ClosedTrade, error) {
	var trade *models.ClosedTrade
	err := e.locks.Do(ctx, symbol, func() error {
		var err error
		trade, err = e.closeLocked(ctx, symbol, reason)
		return err
	})
	if errors.Is(err, symbollock.ErrBusy) {
		return nil, fmt.Errorf("close %s: %w", symbol, ErrConcurrentModification)
	}
	return trade, err
}

func (e *OrderExecutor) closeLocked(ctx context.Context, symbol string, reason models.CloseReason) (*models.ClosedTrade, error) {
	pos, err := e.state.Position(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("close %s: load position: %w", symbol, err)
	}
	if pos == nil {
		return nil, fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}

	e.setState(symbol, StatePendingClose)

	res, err := e.withRetry(ctx, func() (*drepo.OrderResult, error) {
		return e.exchange.ClosePosition(ctx, symbol)
	})
	if err != nil && !errors.Is(err, drepo.ErrOrderRejected) {
		// Indeterminate: if the exchange no longer reports the position,
		// the close went through.
		confirmed, recErr := e.reconcileClose(ctx, symbol)
		if recErr == nil && confirmed {
			res, err = &drepo.OrderResult{}, nil
		}
	}
	if err != nil {
		// Close did not happen; the position is still open.
		e.setState(symbol, StateOpen)
		e.metrics.RecordOrder(symbol, "close_failed")
		return nil, fmt.Errorf("close %s: %w: %v", symbol, ErrExecutionFailed, err)
	}

	pnl := res.RealizedPnl
	if pnl == 0 && res.FillPrice > 0 {
		pnl = pos.PnlAt(res.FillPrice)
	}
	result := models.TradeResultWin
	if pnl < 0 {
		result = models.TradeResultLoss
	}

	trade := &models.ClosedTrade{
		Symbol:      symbol,
		Side:        pos.Side,
		Reason:      reason,
		Result:      result,
		RealizedPnl: pnl,
		ClosePrice:  res.FillPrice,
		ClosedAt:    e.clock.Now().UTC(),
	}

	if err := e.state.DeletePosition(ctx, symbol); err != nil {
		return nil, fmt.Errorf("close %s: delete position: %w", symbol, err)
	}
	e.setState(symbol, StateIdle)
	e.metrics.RecordOrder(symbol, "closed")

	if err := e.gate.RecordOutcome(ctx, symbol, result); err != nil {
		e.log.Error("record outcome", logger.String("symbol", symbol), logger.Error(err))
	}
	if e.archive != nil {
		if err := e.archive.PublishMessage(ctx, MsgClosedTradeArchive, trade); err != nil {
			e.log.Warn("enqueue closed trade", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	e.log.Info("position closed",
		logger.String("symbol", symbol),
		logger.String("reason", string(reason)),
		logger.String("result", string(result)),
		logger.Any("pnl", pnl))
	return trade, nil
}

func (e *OrderExecutor) reconcileClose(ctx context.Context, symbol string) (bool, error) {
	positions, err := e.exchange.GetOpenPositions(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if p.Symbol == symbol {
			return false, nil
		}
	}
	return true, nil
}

// CloseAll closes every tracked position, continuing past per-symbol
// failures.
func (e *OrderExecutor) CloseAll(ctx context.Context, reason models.CloseReason) ([]*models.ClosedTrade, error) {
	positions, err := e.state.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("close all: list positions: %w", err)
	}

	var trades []*models.ClosedTrade
	var firstErr error
	for _, p := range positions {
		trade, err := e.Close(ctx, p.Symbol, reason)
		if err != nil {
			e.log.Error("close all", logger.String("symbol", p.Symbol), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		trades = append(trades, trade)
	}
	return trades, firstErr
}

// withRetry runs op with bounded exponential backoff. Rejections and
// context cancellation are permanent; everything else is retried.
func (e *OrderExecutor) withRetry(ctx context.Context, op func() (*drepo.OrderResult, error)) (*drepo.OrderResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = executorInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, executorMaxRetries), ctx)

	var res *drepo.OrderResult
	err := backoff.Retry(func() error {
		var err error
		res, err = op()
		if err != nil && errors.Is(err, drepo.ErrOrderRejected) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	return res, err
}
