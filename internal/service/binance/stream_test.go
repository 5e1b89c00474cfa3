package binance

import (
	"sync"
	"testing"
	"time"

	drepo "TradePilot/internal/domain/repository"
)

func TestStreamNames(t *testing.T) {
	s := NewStream("wss://example", []string{"BTCUSDT", "ETHUSDT"}, []drepo.Timeframe{drepo.TF5m, drepo.TF1h}, time.Second, time.Second)

	names := s.streamNames()
	want := []string{"btcusdt@kline_5m", "btcusdt@kline_1h", "ethusdt@kline_5m", "ethusdt@kline_1h"}
	if len(names) != len(want) {
		t.Fatalf("streams = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("stream[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestStreamStateConcurrentAccess(t *testing.T) {
	s := NewStream("wss://example", []string{"BTCUSDT"}, []drepo.Timeframe{drepo.TF5m}, time.Millisecond, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.IsConnected()
				_ = s.current()
				_ = s.Close()
			}
		}()
	}
	wg.Wait()

	if s.IsConnected() {
		t.Fatalf("expected disconnected state")
	}
}
