package usecase

import (
	"context"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/service/symbollock"
	"TradePilot/pkg/logger"

	"github.com/benbjohnson/clock"
)

// PositionMonitor polls open positions on a fixed period, refreshes
// unrealized PnL and triggers protective closes on stop/target breaches.
// A failed iteration is logged and skipped; the recurring task never
// terminates on errors, and one symbol's failure never propagates to
// another's.
type PositionMonitor struct {
	market   drepo.MarketData
	state    drepo.StateStore
	executor *OrderExecutor
	metrics  drepo.Metrics
	locks    *symbollock.Registry
	log      *logger.Logger
	clock    clock.Clock

	period  time.Duration
	workers int

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewPositionMonitor creates a monitor with the given polling period and
// worker bound for exchange I/O.
func NewPositionMonitor(
	market drepo.MarketData,
	state drepo.StateStore,
	executor *OrderExecutor,
	metrics drepo.Metrics,
	locks *symbollock.Registry,
	log *logger.Logger,
	clk clock.Clock,
	period time.Duration,
	workers int,
) *PositionMonitor {
	if workers <= 0 {
		workers = 4
	}
	return &PositionMonitor{
		market:   market,
		state:    state,
		executor: executor,
		metrics:  metrics,
		locks:    locks,
		log:      log,
		clock:    clk,
		period:   period,
		workers:  workers,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the recurring task. It returns immediately.
func (m *PositionMonitor) Start(ctx context.Context) {
	ticker := m.clock.Ticker(m.period)
	go func() {
		defer ticker.Stop()
		defer close(m.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Iterate(ctx)
			}
		}
	}()
}

// Stop terminates the recurring task and waits for the loop to exit.
func (m *PositionMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.done
}

// Iterate runs one monitoring pass over all open positions.
func (m *PositionMonitor) Iterate(ctx context.Context) {
	start := m.clock.Now()
	positions, err := m.state.Positions(ctx)
	if err != nil {
		m.metrics.RecordError("monitor_list")
		m.log.Error("monitor: list positions", logger.Error(err))
		return
	}

	sem := make(chan struct{}, m.workers)
	var wg sync.WaitGroup
	for _, pos := range positions {
		pos := pos
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			m.checkPosition(ctx, pos)
		}()
	}
	wg.Wait()
	m.metrics.RecordLatency("monitor_iteration", m.clock.Now().Sub(start).Seconds())
}

func (m *PositionMonitor) checkPosition(ctx context.Context, pos *models.Position) {
	price, err := m.market.GetLatestPrice(ctx, pos.Symbol)
	if err != nil {
		m.metrics.RecordError("monitor_price")
		m.log.Warn("monitor: latest price", logger.String("symbol", pos.Symbol), logger.Error(err))
		return
	}
	m.metrics.RecordLastPrice(pos.Symbol, price)

	if reason := pos.Breached(price); reason != "" {
		if _, err := m.executor.Close(ctx, pos.Symbol, reason); err != nil {
			m.metrics.RecordError("monitor_close")
			m.log.Error("monitor: protective close",
				logger.String("symbol", pos.Symbol),
				logger.String("reason", string(reason)),
				logger.Error(err))
		}
		return
	}

	// PnL refresh shares the symbol's exclusive section with the executor,
	// so a concurrent close cannot race the write.
	err = m.locks.Do(ctx, pos.Symbol, func() error {
		current, err := m.state.Position(ctx, pos.Symbol)
		if err != nil || current == nil {
			return err
		}
		current.UnrealizedPnl = current.PnlAt(price)
		return m.state.SavePosition(ctx, current)
	})
	if err != nil {
		m.metrics.RecordError("monitor_refresh")
		m.log.Warn("monitor: pnl refresh", logger.String("symbol", pos.Symbol), logger.Error(err))
	}
}
