package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturePublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func TestCollectorSnapshotAggregates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs",
		Publisher:      pub,
	})
	defer c.Close()

	c.AddLog("error", "store candle", map[string]interface{}{"symbol": "BTCUSDT"}, "collector.go:10")
	c.AddLog("error", "store candle", map[string]interface{}{"symbol": "BTCUSDT"}, "collector.go:10")
	c.AddLog("warn", "stream error", nil, "stream.go:20")

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot entries = %d, want 2", len(snap))
	}
	counts := map[string]int{}
	for _, e := range snap {
		counts[e.Message] = e.Count
	}
	if counts["store candle"] != 2 {
		t.Fatalf("duplicate entry count = %d, want 2", counts["store candle"])
	}
	if counts["stream error"] != 1 {
		t.Fatalf("single entry count = %d, want 1", counts["stream error"])
	}

	// Snapshot must not flush the buffer.
	if got := len(c.Snapshot()); got != 2 {
		t.Fatalf("entries after snapshot = %d, want 2", got)
	}
	if pub.published() != 0 {
		t.Fatalf("snapshot triggered %d publishes", pub.published())
	}
}

func TestCollectedLogsWithoutCollector(t *testing.T) {
	l, err := New(&Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logs := l.CollectedLogs(); logs != nil {
		t.Fatalf("expected nil without a collector, got %v", logs)
	}
}
