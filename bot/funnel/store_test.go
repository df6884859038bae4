package funnel

import "testing"

func TestStoreCRUD(t *testing.T) {
	s := NewStore()
	if got := s.Get(1); got != nil {
		t.Fatalf("expected nil session, got %+v", got)
	}

	sess := &Session{ChatID: 1, State: StateAwaitingLanguage}
	s.Put(sess)
	if got := s.Get(1); got != sess {
		t.Fatalf("Get returned %+v, want the stored session", got)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}

	s.Remove(1)
	if got := s.Get(1); got != nil {
		t.Fatalf("expected nil after Remove, got %+v", got)
	}
}

func TestStoreChatLockStable(t *testing.T) {
	s := NewStore()
	l1 := s.ChatLock(42)
	l2 := s.ChatLock(42)
	if l1 != l2 {
		t.Fatal("ChatLock returned different mutexes for the same chat")
	}
	if s.ChatLock(43) == l1 {
		t.Fatal("ChatLock shared a mutex between distinct chats")
	}
}
