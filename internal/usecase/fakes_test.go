package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

func testLogger() *logger.Logger {
	l, _ := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	return l
}

// nopMetrics discards all measurements.
type nopMetrics struct{}

func (nopMetrics) RecordSignal(string, string)         {}
func (nopMetrics) RecordOrder(string, string)          {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordLastPrice(string, float64)     {}
func (nopMetrics) RecordLatency(string, float64)       {}
func (nopMetrics) RecordConsecutiveLosses(string, int) {}

// memState is an in-memory StateStore.
type memState struct {
	mu          sync.Mutex
	auto        models.AutoTradingState
	losses      map[string]models.LossCounter
	lastSignals map[string]time.Time
	positions   map[string]*models.Position
}

func newMemState() *memState {
	return &memState{
		losses:      make(map[string]models.LossCounter),
		lastSignals: make(map[string]time.Time),
		positions:   make(map[string]*models.Position),
	}
}

func (s *memState) AutoTradingState(ctx context.Context) (models.AutoTradingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto, nil
}

func (s *memState) SetAutoTradingState(ctx context.Context, st models.AutoTradingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auto = st
	return nil
}

func (s *memState) LossCounter(ctx context.Context, symbol string) (models.LossCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.losses[symbol]; ok {
		return c, nil
	}
	return models.LossCounter{Symbol: symbol}, nil
}

func (s *memState) SetLossCounter(ctx context.Context, c models.LossCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.losses[c.Symbol] = c
	return nil
}

func (s *memState) LastSignalAt(ctx context.Context, symbol string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSignals[symbol], nil
}

func (s *memState) SetLastSignalAt(ctx context.Context, symbol string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSignals[symbol] = t
	return nil
}

func (s *memState) Position(ctx context.Context, symbol string) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.positions[symbol]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *memState) Positions(ctx context.Context) ([]*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Position, 0, len(s.positions))
	for _, p := range s.positions {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memState) SavePosition(ctx context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.positions[p.Symbol] = &cp
	return nil
}

func (s *memState) DeletePosition(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, symbol)
	return nil
}

// memSettings serves a fixed settings value.
type memSettings struct {
	mu sync.Mutex
	s  models.TradingSettings
}

func newMemSettings(s models.TradingSettings) *memSettings {
	return &memSettings{s: s}
}

func (m *memSettings) Get(ctx context.Context) (models.TradingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *memSettings) UpdateSetting(ctx context.Context, key string, value interface{}) (models.TradingSettings, error) {
	return m.Get(ctx)
}

func (m *memSettings) Replace(ctx context.Context, s models.TradingSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *memSettings) ResetToDefaults(ctx context.Context) (models.TradingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = models.DefaultTradingSettings()
	return m.s, nil
}

// fakeMarket serves canned candles and prices.
type fakeMarket struct {
	mu      sync.Mutex
	candles map[string][]models.Candle // key symbol+"/"+tf
	prices  map[string]float64
	err     error
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{candles: make(map[string][]models.Candle), prices: make(map[string]float64)}
}

func (m *fakeMarket) set(symbol string, tf drepo.Timeframe, candles []models.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[symbol+"/"+string(tf)] = candles
}

func (m *fakeMarket) GetCandles(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.candles[symbol+"/"+string(tf)], nil
}

func (m *fakeMarket) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	p, ok := m.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return p, nil
}

// fakeExchange returns scripted results. Error queues are consumed first;
// once drained calls succeed.
type fakeExchange struct {
	mu         sync.Mutex
	placeErrs  []error
	closeErrs  []error
	placeRes   *drepo.OrderResult
	closeRes   *drepo.OrderResult
	positions  []*models.Position
	posErr     error
	filters    *models.SymbolFilters
	placeCalls int
	closeCalls int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		placeRes: &drepo.OrderResult{OrderID: 1, FillPrice: 100, FilledQty: 1},
		closeRes: &drepo.OrderResult{OrderID: 2, FillPrice: 100, RealizedPnl: 0},
		filters:  &models.SymbolFilters{QuantityStep: 0.001, PriceStep: 0.01, MinQuantity: 0.001},
	}
}

func (f *fakeExchange) GetOpenPositions(ctx context.Context) ([]*models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positions, f.posErr
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, plan *models.OrderPlan) (*drepo.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeCalls++
	if len(f.placeErrs) > 0 {
		err := f.placeErrs[0]
		f.placeErrs = f.placeErrs[1:]
		return nil, err
	}
	return f.placeRes, nil
}

func (f *fakeExchange) ClosePosition(ctx context.Context, symbol string) (*drepo.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if len(f.closeErrs) > 0 {
		err := f.closeErrs[0]
		f.closeErrs = f.closeErrs[1:]
		return nil, err
	}
	return f.closeRes, nil
}

func (f *fakeExchange) GetSymbolFilters(ctx context.Context, symbol string) (*models.SymbolFilters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters, nil
}

// fakeQueue records published job messages.
type fakeQueue struct {
	mu       sync.Mutex
	messages []string
	payloads []interface{}
}

func (q *fakeQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

// fakeHistory records appended signals and trades.
type fakeHistory struct {
	mu      sync.Mutex
	signals []*models.Signal
	trades  []*models.ClosedTrade
}

func (h *fakeHistory) AppendSignal(ctx context.Context, s *models.Signal) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, s)
	return nil
}

func (h *fakeHistory) AppendClosedTrade(ctx context.Context, t *models.ClosedTrade) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trades = append(h.trades, t)
	return nil
}

func (h *fakeHistory) RecentSignals(ctx context.Context, symbol string, limit int) ([]*models.Signal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signals, nil
}
