package funnel

import (
	"testing"
	"time"
)

func TestSchedulerFires(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	fired := make(chan struct{})
	start := time.Now()
	s.Schedule(1, 20*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Fatalf("timer fired after %v, before the configured delay", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	fired := make(chan struct{})
	s.Schedule(1, 30*time.Millisecond, func() { close(fired) })
	if !s.Cancel(1) {
		t.Fatal("Cancel reported no pending timer")
	}
	if s.Cancel(1) {
		t.Fatal("second Cancel reported a pending timer")
	}

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSchedulerReplace(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	firstFired := make(chan struct{})
	secondFired := make(chan struct{})
	s.Schedule(1, 30*time.Millisecond, func() { close(firstFired) })
	s.Schedule(1, 30*time.Millisecond, func() { close(secondFired) })

	select {
	case <-firstFired:
		t.Fatal("replaced timer fired")
	case <-secondFired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement timer never fired")
	}
}

func TestSchedulerStop(t *testing.T) {
	s := NewTimerScheduler()
	fired := make(chan struct{})
	s.Schedule(1, 30*time.Millisecond, func() { close(fired) })
	s.Stop()

	// Scheduling after Stop is a no-op.
	s.Schedule(2, time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
		t.Fatal("timer fired after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}
