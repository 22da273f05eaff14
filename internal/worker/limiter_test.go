package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter_Defaults(t *testing.T) {
	l := NewLimiter(2.0, 0)
	if l.defaultBurst != 5 {
		t.Errorf("expected default burst 5, got %d", l.defaultBurst)
	}

	l = NewLimiter(2.0, 3)
	if l.defaultBurst != 3 {
		t.Errorf("expected burst 3, got %d", l.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100.0, 10)
	ctx := context.Background()

	endpoints := []string{
		"http://sentiment.local:9001",
		"http://hate.local:9002/v1",
		"http://sentiment.local:9001/v1/process",
	}
	for _, ep := range endpoints {
		if err := l.Wait(ctx, ep); err != nil {
			t.Errorf("wait for %s: %v", ep, err)
		}
	}

	if len(l.limiters) != 2 {
		t.Errorf("expected 2 host limiters, got %d", len(l.limiters))
	}
}

func TestLimiter_WaitInvalidEndpoint(t *testing.T) {
	l := NewLimiter(100.0, 10)
	if err := l.Wait(context.Background(), "://not-a-url"); err == nil {
		t.Error("expected error for unparseable endpoint")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := NewLimiter(0.1, 1)
	ctx := context.Background()

	// Drain the single burst token, then wait with an expired context.
	if err := l.Wait(ctx, "http://slow.local"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(cancelled, "http://slow.local"); err == nil {
		t.Error("expected context error on exhausted limiter")
	}
}

func TestLimiter_AllowPerHost(t *testing.T) {
	l := NewLimiter(1.0, 2)

	for i := 0; i < 2; i++ {
		if !l.Allow("http://a.local") {
			t.Errorf("request %d within burst denied", i)
		}
	}
	if l.Allow("http://a.local") {
		t.Error("request beyond burst admitted")
	}

	// Hosts are limited independently.
	if !l.Allow("http://b.local") {
		t.Error("fresh host denied")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	l := NewLimiter(1.0, 1)
	l.SetHostRate("fast.local", 100.0, 10)

	for i := 0; i < 10; i++ {
		if !l.Allow("http://fast.local") {
			t.Errorf("request %d within raised burst denied", i)
		}
	}

	// Other hosts keep the default.
	if !l.Allow("http://other.local") {
		t.Error("first request on default host denied")
	}
	if l.Allow("http://other.local") {
		t.Error("second request on default host admitted past burst 1")
	}
}
