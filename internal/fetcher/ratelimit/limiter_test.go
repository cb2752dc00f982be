package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterWait(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1: first token is free, the second waits ~100ms.
	l := New(Config{RequestsPerSecond: 10, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://board.example/search"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "https://board.example/search?page=2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiterDifferentHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://a.example/1"); err != nil {
		t.Fatal(err)
	}

	// A different host has its own bucket and must not be blocked.
	start := time.Now()
	if err := l.Wait(ctx, "https://b.example/1"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("second host blocked unexpectedly")
	}
}

func TestLimiterWaitCanceled(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())

	if err := l.Wait(ctx, "https://c.example/1"); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := l.Wait(ctx, "https://c.example/2"); err == nil {
		t.Fatal("expected error after context cancel")
	}
}

func TestLimiterUnlimitedByDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := l.Wait(ctx, "https://d.example/1"); err != nil {
			t.Fatal(err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("unlimited limiter should not block")
	}
}
