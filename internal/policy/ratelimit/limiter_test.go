package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		delays []string
	)
	l := New(Config{
		RPS:   10, // one token every 100ms
		Burst: 1,
		OnDelay: func(host string, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			delays = append(delays, host)
		},
	})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://ccis.ksu.edu.sa/en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "https://CCIS.ksu.edu.sa/other"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}

	// A different host has its own bucket.
	start = time.Now()
	if err := l.Wait(ctx, "https://www.ksu.edu.sa/"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur > 50*time.Millisecond {
		t.Errorf("expected immediate token for new host, waited %v", dur)
	}
	if got := l.Hosts(); got != 2 {
		t.Fatalf("expected 2 host buckets, got %d", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delays) != 1 || delays[0] != "ccis.ksu.edu.sa" {
		t.Fatalf("expected one recorded delay for ccis.ksu.edu.sa, got %v", delays)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := l.Wait(context.Background(), "https://ksu.edu.sa/"); err != nil {
			t.Fatal(err)
		}
	}
	if dur := time.Since(start); dur > 100*time.Millisecond {
		t.Fatalf("unlimited limiter should not block, took %v", dur)
	}
}

func TestLimiter_ContextCanceled(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.1, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Wait(ctx, "https://ksu.edu.sa/"); err != nil {
		t.Fatal(err)
	}
	cancel()
	err := l.Wait(ctx, "https://ksu.edu.sa/")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := hostOf("::bad"); got != "unknown" {
		t.Fatalf("expected unknown host, got %q", got)
	}
}
