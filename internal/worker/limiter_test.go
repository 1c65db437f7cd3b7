package worker

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}

	l3 := NewLimiter(0, 1)
	if l3.defaultRate != rate.Inf {
		t.Errorf("expected unlimited rate for 0 rps, got %v", l3.defaultRate)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/2020/day/16/input"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://other.example.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_Wait_BadURL(t *testing.T) {
	limiter := NewLimiter(1, 1)
	if err := limiter.Wait(context.Background(), "notes.txt"); err == nil {
		t.Error("expected error for URL without host")
	}
	if limiter.Allow("::bad") {
		t.Error("expected Allow to refuse an unparsable URL")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://example.com"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	if limiter.Allow(url) {
		t.Error("expected second immediate request to be refused")
	}

	// Other hosts are independent
	if !limiter.Allow("http://other.example.com") {
		t.Error("expected other host to be allowed")
	}

	ctx2, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx2, url); err == nil {
		t.Error("expected wait to fail within a short deadline")
	}
}

func TestLimiter_SlowHost(t *testing.T) {
	limiter := NewLimiter(10, 1)

	limiter.SlowHost("example.com", 2*time.Second)
	if got := limiter.forHost("example.com").Limit(); got != rate.Every(2*time.Second) {
		t.Errorf("expected slowed rate, got %v", got)
	}

	// A shorter delay never speeds a host back up
	limiter.SlowHost("example.com", 500*time.Millisecond)
	if got := limiter.forHost("example.com").Limit(); got != rate.Every(2*time.Second) {
		t.Errorf("expected rate to stay slowed, got %v", got)
	}

	// A delay faster than the default is ignored
	limiter.SlowHost("fast.example.com", time.Millisecond)
	if got := limiter.forHost("fast.example.com").Limit(); got != rate.Limit(10) {
		t.Errorf("expected default rate, got %v", got)
	}
}
