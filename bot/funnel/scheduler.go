package funnel

import (
	"sync"
	"time"
)

// Scheduler fires a one-shot callback after a delay, keyed by chat id.
// A /start reset cancels the pending timer so a stale follow-up is never
// delivered for an abandoned flow.
type Scheduler interface {
	Schedule(chatID int64, delay time.Duration, fn func())
	Cancel(chatID int64) bool
	Stop()
}

// TimerScheduler implements Scheduler on top of time.AfterFunc.
// Timers for distinct chats are independent and may fire concurrently.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	stopped bool
}

// NewTimerScheduler returns an empty scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[int64]*time.Timer)}
}

// Schedule registers fn to run once after delay, replacing any timer
// already pending for the chat.
func (s *TimerScheduler) Schedule(chatID int64, delay time.Duration, fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[chatID]; ok {
		t.Stop()
	}
	s.timers[chatID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, chatID)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		fn()
	})
}

// Cancel removes a pending timer for the chat. It reports whether a timer
// was still pending.
func (s *TimerScheduler) Cancel(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[chatID]
	if !ok {
		return false
	}
	delete(s.timers, chatID)
	return t.Stop()
}

// Stop cancels all pending timers and rejects further scheduling.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
