package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/service/symbollock"

	"github.com/benbjohnson/clock"
)

// fakeStream feeds candles through in-memory channels. Like the real
// stream, a read failure closes both channels and a reconnect hands out
// fresh ones on the next Read.
type fakeStream struct {
	mu         sync.Mutex
	candles    chan *models.Candle
	errs       chan error
	connected  atomic.Bool
	reconnects atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{candles: make(chan *models.Candle, 16), errs: make(chan error, 1)}
}

func (s *fakeStream) Connect(ctx context.Context) error   { s.connected.Store(true); return nil }
func (s *fakeStream) Subscribe(ctx context.Context) error { return nil }
func (s *fakeStream) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candles, s.errs
}

func (s *fakeStream) Reconnect(ctx context.Context) error {
	s.reconnects.Add(1)
	s.mu.Lock()
	s.candles = make(chan *models.Candle, 16)
	s.errs = make(chan error, 1)
	s.mu.Unlock()
	s.connected.Store(true)
	return nil
}

func (s *fakeStream) Close() error      { s.connected.Store(false); return nil }
func (s *fakeStream) IsConnected() bool { return s.connected.Load() }

func (s *fakeStream) send(c *models.Candle) {
	s.mu.Lock()
	ch := s.candles
	s.mu.Unlock()
	ch <- c
}

// fail emits the error and tears down the channel pair the way the real
// read loop does on a websocket error.
func (s *fakeStream) fail(err error) {
	s.mu.Lock()
	s.errs <- err
	close(s.errs)
	close(s.candles)
	s.mu.Unlock()
}

func newTestCollector(stream *fakeStream, store drepo.CandleStore) *CandleCollector {
	state := newMemState()
	market := newFakeMarket()
	settings := models.DefaultTradingSettings()
	clk := clock.NewMock()
	gate := NewAutoTradingController(newMemSettings(settings), state, nopMetrics{}, testLogger(), clk)
	engine := NewIndicatorEngine(DefaultIndicatorWindows())
	generator := NewSignalGenerator(market, engine, state, nopMetrics{}, clk, drepo.TF5m, drepo.TF1h)
	executor := NewOrderExecutor(newFakeExchange(), state, &fakeQueue{}, gate, nopMetrics{}, symbollock.New(time.Second), testLogger(), clk)
	trading := NewTradingService(generator, NewRiskManager(newFakeExchange()), executor, gate, market, newMemSettings(settings), state, &fakeHistory{}, nil, testLogger())
	return NewCandleCollector(stream, store, trading, nopMetrics{}, testLogger(), drepo.TF5m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestCollectorStoresClosedCandles(t *testing.T) {
	stream := newFakeStream()
	store := &recordingStore{}
	c := newTestCollector(stream, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !c.IsConnected() {
		t.Fatalf("not connected after start")
	}

	stream.send(&models.Candle{Symbol: "BTCUSDT", Timeframe: "1h", Close: 100, IsClosed: false})
	stream.send(&models.Candle{Symbol: "BTCUSDT", Timeframe: "1h", Close: 101, IsClosed: true})

	waitFor(t, func() bool { return len(store.stored()) == 1 })
	if got := store.stored(); got[0].Close != 101 {
		t.Fatalf("stored candle = %+v, want the closed one", got[0])
	}

	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if c.IsConnected() {
		t.Fatalf("still connected after shutdown")
	}
}

func TestCollectorReconnectsOnStreamError(t *testing.T) {
	stream := newFakeStream()
	c := newTestCollector(stream, &recordingStore{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream.fail(context.DeadlineExceeded)
	waitFor(t, func() bool { return stream.reconnects.Load() == 1 })
}

func TestCollectorResumesAfterStreamError(t *testing.T) {
	stream := newFakeStream()
	store := &recordingStore{}
	c := newTestCollector(stream, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	stream.send(&models.Candle{Symbol: "BTCUSDT", Timeframe: "1h", Close: 100, IsClosed: true})
	waitFor(t, func() bool { return len(store.stored()) == 1 })

	stream.fail(context.DeadlineExceeded)
	waitFor(t, func() bool { return stream.reconnects.Load() >= 1 })

	// Candles on the post-reconnect channels must still be consumed.
	stream.send(&models.Candle{Symbol: "BTCUSDT", Timeframe: "1h", Close: 102, IsClosed: true})
	waitFor(t, func() bool { return len(store.stored()) == 2 })
	if got := store.stored(); got[1].Close != 102 {
		t.Fatalf("stored candle = %+v, want the post-reconnect one", got[1])
	}
}
