package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewRateLimiter_ZeroRate(t *testing.T) {
	rl := NewRateLimiter(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero rate should not block, took %v", elapsed)
	}
}

func TestRateLimiter_ZeroRateHonorsCancellation(t *testing.T) {
	rl := NewRateLimiter(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRateLimiter_SpacesSends(t *testing.T) {
	rl := NewRateLimiter(20)
	ctx := context.Background()

	start := time.Now()
	// The first send is immediate, the next four wait 50ms each.
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("pacing doesn't appear to be working, elapsed: %v", elapsed)
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(1)
	_ = rl.Wait(context.Background())

	rl.SetRate(0)
	if rl.Rate() != 0 {
		t.Errorf("Rate() = %v, expected 0", rl.Rate())
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("unpaced wait took %v", elapsed)
	}
}
