package funnel

import "sync"

// Store keeps per-chat sessions in memory. Concurrent chats are independent
// keys; within one chat the engine serializes access via the per-chat lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns the session for the chat, or nil when none exists.
func (s *Store) Get(chatID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[chatID]
}

// Put stores the session under its chat id.
func (s *Store) Put(sess *Session) {
	if sess == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ChatID] = sess
}

// Remove deletes the session for the chat.
func (s *Store) Remove(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ChatLock returns the mutex guarding the chat's funnel transitions,
// creating it on first use. Locks are never evicted; a funnel session is
// small and long-lived for the process lifetime.
func (s *Store) ChatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[chatID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[chatID] = l
	return l
}
