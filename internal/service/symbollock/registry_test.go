package symbollock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDoSerializesPerSymbol(t *testing.T) {
	r := New(time.Second)
	ctx := context.Background()

	var mu sync.Mutex
	inSection := 0
	maxSeen := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Do(ctx, "BTCUSDT", func() error {
				mu.Lock()
				inSection++
				if inSection > maxSeen {
					maxSeen = inSection
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inSection--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("do: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent sections = %d, want 1", maxSeen)
	}
}

func TestAcquireTimesOut(t *testing.T) {
	r := New(20 * time.Millisecond)
	ctx := context.Background()

	release, err := r.Acquire(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	if _, err := r.Acquire(ctx, "BTCUSDT"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSymbolsAreIndependent(t *testing.T) {
	r := New(20 * time.Millisecond)
	ctx := context.Background()

	release, err := r.Acquire(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	release2, err := r.Acquire(ctx, "ETHUSDT")
	if err != nil {
		t.Fatalf("other symbol blocked: %v", err)
	}
	release2()
}

func TestAcquireCancelled(t *testing.T) {
	r := New(time.Minute)

	release, err := r.Acquire(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Acquire(ctx, "BTCUSDT"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
