package pacer

import (
	"context"
	"testing"
	"time"
)

func TestWait_FirstCallImmediate(t *testing.T) {
	p := New(time.Second)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("First Wait() took %v, expected immediate release", elapsed)
	}
}

func TestWait_EnforcesMinimumInterval(t *testing.T) {
	interval := 20 * time.Millisecond
	p := New(interval)

	const n = 4
	start := time.Now()
	for i := 0; i < n; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() %d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// N releases imply at least (N-1) full intervals.
	min := time.Duration(n-1) * interval
	if elapsed < min {
		t.Errorf("Wall-clock for %d waits = %v, want >= %v", n, elapsed, min)
	}
}

func TestWait_ZeroIntervalNeverBlocks(t *testing.T) {
	p := New(0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("10 waits with zero interval took %v", elapsed)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	p := New(time.Hour)

	// First release arms the interval.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("First Wait() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	if err == nil {
		t.Fatal("Expected context error, got nil")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestInterval(t *testing.T) {
	p := New(250 * time.Millisecond)
	if got := p.Interval(); got != 250*time.Millisecond {
		t.Errorf("Interval() = %v, want 250ms", got)
	}
}

func TestWait_ReleasesAfterElapsedInterval(t *testing.T) {
	interval := 10 * time.Millisecond
	p := New(interval)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}

	// Let the interval pass outside the pacer; the next release should be
	// nearly immediate.
	time.Sleep(2 * interval)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > interval {
		t.Errorf("Wait() after elapsed interval took %v, want < %v", elapsed, interval)
	}
}
