package funnel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type sentMsg struct {
	chatID int64
	text   string
	kb     Keyboard
}

type callbackReply struct {
	callbackID string
	text       string
	showAlert  bool
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMsg
	replies []callbackReply
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, kb Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeMessenger) Respond(_ context.Context, callbackID, text string, showAlert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, callbackReply{callbackID: callbackID, text: text, showAlert: showAlert})
	return nil
}

func (f *fakeMessenger) last(t *testing.T) sentMsg {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) lastReply(t *testing.T) callbackReply {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		t.Fatal("no callback replies")
	}
	return f.replies[len(f.replies)-1]
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeMembership struct {
	mu         sync.Mutex
	subscribed bool
	err        error
	calls      int
}

func (f *fakeMembership) IsSubscribed(context.Context, int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.subscribed, f.err
}

func (f *fakeMembership) set(subscribed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = subscribed
}

type fakeSink struct {
	mu    sync.Mutex
	leads []Lead
}

func (f *fakeSink) Save(_ context.Context, lead Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, lead)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.leads)
}

// fakeScheduler captures the scheduled callback so tests can fire it
// deterministically.
type fakeScheduler struct {
	mu        sync.Mutex
	fns       map[int64]func()
	cancelled []int64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{fns: make(map[int64]func())}
}

func (f *fakeScheduler) Schedule(chatID int64, _ time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fns[chatID] = fn
}

func (f *fakeScheduler) Cancel(chatID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, chatID)
	_, ok := f.fns[chatID]
	delete(f.fns, chatID)
	return ok
}

func (f *fakeScheduler) Stop() {}

func (f *fakeScheduler) fire(t *testing.T, chatID int64) {
	t.Helper()
	f.mu.Lock()
	fn, ok := f.fns[chatID]
	delete(f.fns, chatID)
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no timer scheduled for chat %d", chatID)
	}
	fn()
}

func (f *fakeScheduler) pending(chatID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.fns[chatID]
	return ok
}

type fixture struct {
	engine *Engine
	store  *Store
	msgr   *fakeMessenger
	member *fakeMembership
	sink   *fakeSink
	sched  *fakeScheduler
}

func newFixture() *fixture {
	f := &fixture{
		store:  NewStore(),
		msgr:   &fakeMessenger{},
		member: &fakeMembership{},
		sink:   &fakeSink{},
		sched:  newFakeScheduler(),
	}
	f.engine = NewEngine(f.store, f.msgr, f.member, f.sink, f.sched, Config{
		Channel:       "@testchannel",
		FollowupDelay: 10 * time.Minute,
	})
	return f
}

// advance walks a chat up to the requested state via the public handlers.
func (f *fixture) advance(t *testing.T, chatID int64, target State) {
	t.Helper()
	ctx := context.Background()
	userID := chatID

	steps := []struct {
		state State
		run   func() error
	}{
		{StateAwaitingLanguage, func() error {
			return f.engine.HandleStart(ctx, chatID, userID, "user", "User")
		}},
		{StateAwaitingPhone, func() error {
			return f.engine.HandleText(ctx, chatID, userID, "user", "User", LabelEN)
		}},
		{StateAwaitingSubscription, func() error {
			return f.engine.HandleText(ctx, chatID, userID, "user", "User", "5551234567")
		}},
		{StatePostVideo, func() error {
			f.member.set(true)
			return f.engine.HandleSubscriptionCheck(ctx, chatID, userID, "cb1")
		}},
		{StateAwaitingFeedback, func() error {
			f.sched.fire(t, chatID)
			return nil
		}},
		{StateCompleted, func() error {
			return f.engine.HandleFeedback(ctx, chatID, userID, "cb2", CallbackYes)
		}},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("advance to %s: %v", step.state, err)
		}
		if got := f.store.Get(chatID).State; got != step.state {
			t.Fatalf("advance: state = %s, want %s", got, step.state)
		}
		if step.state == target {
			return
		}
	}
	t.Fatalf("unknown target state %s", target)
}

func TestEndToEndFunnel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID, userID = int64(100), int64(100)

	if err := f.engine.HandleStart(ctx, chatID, userID, "c1", "Chat One"); err != nil {
		t.Fatal(err)
	}
	if msg := f.msgr.last(t); msg.text != TextLanguagePrompt || msg.kb != KeyboardLanguages {
		t.Fatalf("unexpected language prompt: %+v", msg)
	}

	if err := f.engine.HandleText(ctx, chatID, userID, "c1", "Chat One", LabelEN); err != nil {
		t.Fatal(err)
	}
	if msg := f.msgr.last(t); msg.text != Text(LangEN, textPhonePrompt) || msg.kb != KeyboardContact {
		t.Fatalf("unexpected phone prompt: %+v", msg)
	}

	if err := f.engine.HandleText(ctx, chatID, userID, "c1", "Chat One", "5551234567"); err != nil {
		t.Fatal(err)
	}
	msg := f.msgr.last(t)
	if msg.kb != KeyboardSubscribe || !strings.Contains(msg.text, "@testchannel") {
		t.Fatalf("unexpected subscription prompt: %+v", msg)
	}
	if got := f.store.Get(chatID).Phone; got != "5551234567" {
		t.Fatalf("phone = %q, want 5551234567", got)
	}

	// First press while not subscribed: denial alert, no state change.
	f.member.set(false)
	if err := f.engine.HandleSubscriptionCheck(ctx, chatID, userID, "cb1"); err != nil {
		t.Fatal(err)
	}
	reply := f.msgr.lastReply(t)
	if !reply.showAlert || reply.text != Text(LangEN, textNotSubscribed) {
		t.Fatalf("unexpected denial reply: %+v", reply)
	}
	if got := f.store.Get(chatID).State; got != StateAwaitingSubscription {
		t.Fatalf("state after denial = %s, want %s", got, StateAwaitingSubscription)
	}
	if f.sink.count() != 0 {
		t.Fatal("lead persisted before subscription confirmed")
	}

	// Second press after joining: the guard must be re-evaluated.
	f.member.set(true)
	if err := f.engine.HandleSubscriptionCheck(ctx, chatID, userID, "cb2"); err != nil {
		t.Fatal(err)
	}
	if f.member.calls != 2 {
		t.Fatalf("membership checked %d times, want 2", f.member.calls)
	}
	if msg := f.msgr.last(t); msg.text != Text(LangEN, textVideoSoon) {
		t.Fatalf("unexpected video notice: %+v", msg)
	}
	if got := f.store.Get(chatID).State; got != StatePostVideo {
		t.Fatalf("state = %s, want %s", got, StatePostVideo)
	}
	if !f.sched.pending(chatID) {
		t.Fatal("follow-up timer not scheduled")
	}
	if f.sink.count() != 1 {
		t.Fatalf("leads persisted = %d, want 1", f.sink.count())
	}

	f.sched.fire(t, chatID)
	if msg := f.msgr.last(t); msg.text != Text(LangEN, textFeedback) || msg.kb != KeyboardFeedback {
		t.Fatalf("unexpected feedback question: %+v", msg)
	}
	if got := f.store.Get(chatID).State; got != StateAwaitingFeedback {
		t.Fatalf("state = %s, want %s", got, StateAwaitingFeedback)
	}

	if err := f.engine.HandleFeedback(ctx, chatID, userID, "cb3", CallbackYes); err != nil {
		t.Fatal(err)
	}
	if msg := f.msgr.last(t); msg.text != Text(LangEN, textThanks) {
		t.Fatalf("unexpected thank-you: %+v", msg)
	}
	if got := f.store.Get(chatID).State; got != StateCompleted {
		t.Fatalf("state = %s, want %s", got, StateCompleted)
	}
}

func TestStartResetsSessionAndCancelsTimer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(200)

	f.advance(t, chatID, StatePostVideo)
	if !f.sched.pending(chatID) {
		t.Fatal("expected pending timer before reset")
	}

	if err := f.engine.HandleStart(ctx, chatID, chatID, "user", "User"); err != nil {
		t.Fatal(err)
	}
	sess := f.store.Get(chatID)
	if sess.State != StateAwaitingLanguage {
		t.Fatalf("state = %s, want %s", sess.State, StateAwaitingLanguage)
	}
	if sess.Language != "" || sess.Phone != "" {
		t.Fatalf("reset left data behind: lang=%q phone=%q", sess.Language, sess.Phone)
	}
	if f.sched.pending(chatID) {
		t.Fatal("pending timer survived /start reset")
	}
}

func TestInvalidPhoneReprompts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(300)

	f.advance(t, chatID, StateAwaitingPhone)

	for _, bad := range []string{"12345", "abc1234567890"} {
		if err := f.engine.HandleText(ctx, chatID, chatID, "user", "User", bad); err != nil {
			t.Fatal(err)
		}
		if msg := f.msgr.last(t); msg.text != Text(LangEN, textInvalidPhone) {
			t.Fatalf("input %q: unexpected reply %+v", bad, msg)
		}
		if got := f.store.Get(chatID).State; got != StateAwaitingPhone {
			t.Fatalf("input %q: state = %s, want %s", bad, got, StateAwaitingPhone)
		}
	}

	if err := f.engine.HandleText(ctx, chatID, chatID, "user", "User", "+1 (234) 567-8901"); err != nil {
		t.Fatal(err)
	}
	sess := f.store.Get(chatID)
	if sess.Phone != "+12345678901" {
		t.Fatalf("phone = %q, want +12345678901", sess.Phone)
	}
	if sess.State != StateAwaitingSubscription {
		t.Fatalf("state = %s, want %s", sess.State, StateAwaitingSubscription)
	}
}

func TestContactSharesPhone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(400)

	f.advance(t, chatID, StateAwaitingPhone)
	if err := f.engine.HandleContact(ctx, chatID, chatID, "user", "User", "998 90 123-45-67"); err != nil {
		t.Fatal(err)
	}
	sess := f.store.Get(chatID)
	if sess.Phone != "998901234567" {
		t.Fatalf("phone = %q, want 998901234567", sess.Phone)
	}
	if sess.State != StateAwaitingSubscription {
		t.Fatalf("state = %s, want %s", sess.State, StateAwaitingSubscription)
	}
}

func TestValidPhoneBeforeLanguageRepromptsLanguage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(500)

	f.advance(t, chatID, StateAwaitingLanguage)
	if err := f.engine.HandleText(ctx, chatID, chatID, "user", "User", "5551234567"); err != nil {
		t.Fatal(err)
	}
	if msg := f.msgr.last(t); msg.text != TextLanguagePrompt || msg.kb != KeyboardLanguages {
		t.Fatalf("expected language re-prompt, got %+v", msg)
	}
	sess := f.store.Get(chatID)
	if sess.State != StateAwaitingLanguage || sess.Phone != "" {
		t.Fatalf("session advanced without a language: %+v", sess)
	}
}

func TestStaleCallbackAfterReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(600)

	// Callback with no session at all.
	if err := f.engine.HandleSubscriptionCheck(ctx, chatID, chatID, "cb"); err != nil {
		t.Fatal(err)
	}
	if msg := f.msgr.last(t); msg.text != Text("", textStaleSession) {
		t.Fatalf("unexpected stale-session reply: %+v", msg)
	}
	if got := f.store.Get(chatID).State; got != StateAwaitingLanguage {
		t.Fatalf("state = %s, want %s", got, StateAwaitingLanguage)
	}
}

func TestUnlistedEventsAreNoOps(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(700)

	f.advance(t, chatID, StateAwaitingSubscription)
	snapshot := *f.store.Get(chatID)

	cases := []struct {
		name string
		run  func() error
	}{
		{"text while awaiting subscription", func() error {
			return f.engine.HandleText(ctx, chatID, chatID, "user", "User", "hello")
		}},
		{"contact while awaiting subscription", func() error {
			return f.engine.HandleContact(ctx, chatID, chatID, "user", "User", "5551234567")
		}},
		{"feedback while awaiting subscription", func() error {
			return f.engine.HandleFeedback(ctx, chatID, chatID, "cb", CallbackNo)
		}},
	}
	for _, tc := range cases {
		if err := tc.run(); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := *f.store.Get(chatID); got != snapshot {
			t.Fatalf("%s mutated session: %+v", tc.name, got)
		}
	}

	f.member.set(true)
	f.advance(t, chatID, StateCompleted)
	snapshot = *f.store.Get(chatID)

	if err := f.engine.HandleText(ctx, chatID, chatID, "user", "User", "anything"); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleFeedback(ctx, chatID, chatID, "cb", CallbackYes); err != nil {
		t.Fatal(err)
	}
	if got := *f.store.Get(chatID); got != snapshot {
		t.Fatalf("completed session mutated: %+v", got)
	}
}

func TestTimerCarriesLanguageSnapshot(t *testing.T) {
	f := newFixture()
	const chatID = int64(800)

	f.advance(t, chatID, StatePostVideo)

	// Mutating the session language after scheduling must not affect the
	// already-captured snapshot.
	f.store.Get(chatID).Language = LangRU
	f.sched.fire(t, chatID)

	if msg := f.msgr.last(t); msg.text != Text(LangEN, textFeedback) {
		t.Fatalf("timer used a re-read language: %+v", msg)
	}
}

func TestStaleTimerIsIgnored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(900)

	f.advance(t, chatID, StatePostVideo)

	// Keep a reference to the scheduled callback, then reset the chat.
	f.sched.mu.Lock()
	fn := f.sched.fns[chatID]
	f.sched.mu.Unlock()

	if err := f.engine.HandleStart(ctx, chatID, chatID, "user", "User"); err != nil {
		t.Fatal(err)
	}
	before := f.msgr.sentCount()
	fn()
	if f.msgr.sentCount() != before {
		t.Fatal("stale timer produced output after reset")
	}
	if got := f.store.Get(chatID).State; got != StateAwaitingLanguage {
		t.Fatalf("state = %s, want %s", got, StateAwaitingLanguage)
	}
}

func TestMembershipErrorKeepsState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const chatID = int64(1000)

	f.advance(t, chatID, StateAwaitingSubscription)
	f.member.mu.Lock()
	f.member.err = fmt.Errorf("api unavailable")
	f.member.mu.Unlock()

	if err := f.engine.HandleSubscriptionCheck(ctx, chatID, chatID, "cb"); err != nil {
		t.Fatal(err)
	}
	reply := f.msgr.lastReply(t)
	if !reply.showAlert || reply.text != Text(LangEN, textTryAgain) {
		t.Fatalf("unexpected error reply: %+v", reply)
	}
	if got := f.store.Get(chatID).State; got != StateAwaitingSubscription {
		t.Fatalf("state = %s, want %s", got, StateAwaitingSubscription)
	}
}

func TestConcurrentChatsAreIndependent(t *testing.T) {
	f := newFixture()
	f.member.set(true)

	var wg sync.WaitGroup
	chats := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	for _, chatID := range chats {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ctx := context.Background()
			if err := f.engine.HandleStart(ctx, id, id, "u", "U"); err != nil {
				t.Error(err)
				return
			}
			if err := f.engine.HandleText(ctx, id, id, "u", "U", LabelUZ); err != nil {
				t.Error(err)
				return
			}
			phone := fmt.Sprintf("99890%07d", id)
			if err := f.engine.HandleText(ctx, id, id, "u", "U", phone); err != nil {
				t.Error(err)
				return
			}
			if err := f.engine.HandleSubscriptionCheck(ctx, id, id, "cb"); err != nil {
				t.Error(err)
			}
		}(chatID)
	}
	wg.Wait()

	for _, chatID := range chats {
		sess := f.store.Get(chatID)
		if sess == nil || sess.State != StatePostVideo {
			t.Fatalf("chat %d: state = %+v, want %s", chatID, sess, StatePostVideo)
		}
		if sess.Language != LangUZ {
			t.Fatalf("chat %d: language = %q", chatID, sess.Language)
		}
	}
	if f.sink.count() != len(chats) {
		t.Fatalf("leads persisted = %d, want %d", f.sink.count(), len(chats))
	}
}
