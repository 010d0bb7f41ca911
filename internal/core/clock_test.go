package core

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() returned %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	time.Sleep(10 * time.Millisecond)
	elapsed := clock.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("RealClock.Since() returned %v, expected >= 10ms", elapsed)
	}
}

func TestFakeClock_Now(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("FakeClock.Now() returned %v, expected %v", clock.Now(), start)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	clock.Advance(1 * time.Hour)
	expected := start.Add(1 * time.Hour)

	if !clock.Now().Equal(expected) {
		t.Errorf("after Advance(1h), Now() returned %v, expected %v", clock.Now(), expected)
	}
}

func TestFakeClock_Since(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	// Since should return 0 initially
	if clock.Since(start) != 0 {
		t.Errorf("FakeClock.Since(start) = %v, expected 0", clock.Since(start))
	}

	// Advance and check Since
	clock.Advance(5 * time.Minute)
	if clock.Since(start) != 5*time.Minute {
		t.Errorf("after Advance(5m), Since(start) = %v, expected 5m", clock.Since(start))
	}
}

func TestFakeClock_Set(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	newTime := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)
	clock.Set(newTime)

	if !clock.Now().Equal(newTime) {
		t.Errorf("after Set(), Now() returned %v, expected %v", clock.Now(), newTime)
	}
}

func TestFakeClock_MultipleAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	clock.Advance(10 * time.Second)
	clock.Advance(20 * time.Second)
	clock.Advance(30 * time.Second)

	expected := start.Add(60 * time.Second)
	if !clock.Now().Equal(expected) {
		t.Errorf("after multiple Advances, Now() = %v, expected %v", clock.Now(), expected)
	}
}

func TestFakeClock_TimerFiresOnAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	timer := clock.NewTimer(20 * time.Second)

	clock.Advance(19 * time.Second)
	select {
	case <-timer.C:
		t.Fatal("timer fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case got := <-timer.C:
		if !got.Equal(start.Add(20 * time.Second)) {
			t.Errorf("timer fired at %v, expected %v", got, start.Add(20*time.Second))
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}

	if timer.Stop() {
		t.Error("Stop() on a fired timer returned true")
	}
}

func TestFakeClock_StoppedTimerNeverFires(t *testing.T) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	timer := clock.NewTimer(time.Second)

	if !timer.Stop() {
		t.Error("Stop() on an armed timer returned false")
	}
	clock.Advance(time.Minute)

	select {
	case <-timer.C:
		t.Error("stopped timer fired")
	default:
	}
	if clock.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop, expected 0", clock.Pending())
	}
}

func TestFakeClock_TickerRearms(t *testing.T) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
	if clock.Pending() != 1 {
		t.Errorf("Pending() = %d, expected 1", clock.Pending())
	}
}

func TestFakeClock_WaitForTimers(t *testing.T) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	done := make(chan struct{})

	go func() {
		timer := clock.NewTimer(time.Second)
		<-timer.C
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer goroutine was not released")
	}
}

func TestRealClock_Timer(t *testing.T) {
	timer := RealClock{}.NewTimer(5 * time.Millisecond)
	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
