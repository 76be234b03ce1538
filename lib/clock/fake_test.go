// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeNowMovesOnlyOnAdvance(t *testing.T) {
	fake := Fake(epoch)
	if got := fake.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	fake.Advance(90 * time.Second)
	if got, want := fake.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeTimerFiresAtDeadline(t *testing.T) {
	fake := Fake(epoch)
	timer := fake.NewTimer(time.Minute)

	fake.Advance(59 * time.Second)
	select {
	case <-timer.C:
		t.Fatal("timer fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-timer.C:
		if want := epoch.Add(time.Minute); !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
	if count := fake.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d after fire, want 0", count)
	}
}

func TestFakeTimerStop(t *testing.T) {
	fake := Fake(epoch)
	timer := fake.NewTimer(time.Minute)
	if !timer.Stop() {
		t.Fatal("Stop() = false for an active timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}
	fake.Advance(time.Hour)
	select {
	case <-timer.C:
		t.Error("stopped timer fired")
	default:
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	fake := Fake(epoch)
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) was not immediately ready")
	}
	if count := fake.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d, want 0", count)
	}
}

func TestFakeTickerReschedules(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for round := 1; round <= 3; round++ {
		fake.Advance(10 * time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("round %d: no tick", round)
		}
	}
	if count := fake.PendingCount(); count != 1 {
		t.Errorf("PendingCount() = %d, want 1 (the ticker)", count)
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-fake.After(5 * time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("goroutine did not observe the advance")
	}
}
