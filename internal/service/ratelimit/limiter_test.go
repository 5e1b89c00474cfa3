package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0) {
			t.Fatalf("call %d denied within capacity", i)
		}
	}
	if l.Allow("k", 3, 0) {
		t.Fatalf("allowed past capacity with no refill")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 100) {
		t.Fatalf("first call denied")
	}
	if l.Allow("k", 1, 100) {
		t.Fatalf("allowed with empty bucket")
	}
	time.Sleep(30 * time.Millisecond) // 100/s refills well over one token
	if !l.Allow("k", 1, 100) {
		t.Fatalf("denied after refill")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("first key denied")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("second key affected by first")
	}
}
