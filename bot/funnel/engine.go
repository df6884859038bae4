package funnel

import (
	"context"
	"fmt"
	"time"

	"github.com/m3rciful/funnelbot/core/logger"
	"log/slog"
)

// Keyboard names the control set attached to an outbound message.
// The gateway translates these into transport-specific markup.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	// KeyboardLanguages is the reply keyboard with the three language labels.
	KeyboardLanguages
	// KeyboardContact is the reply keyboard with a share-contact button.
	KeyboardContact
	// KeyboardSubscribe is the inline confirm-subscription button.
	KeyboardSubscribe
	// KeyboardFeedback is the inline yes/no button row.
	KeyboardFeedback
	// KeyboardRemove clears any visible reply keyboard.
	KeyboardRemove
)

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) error
	// Respond answers a callback query, optionally as a blocking alert.
	Respond(ctx context.Context, callbackID, text string, showAlert bool) error
}

// Membership answers whether a user is subscribed to the target channel.
// It is queried fresh on every confirm press: membership can change between
// the prompt and the confirmation.
type Membership interface {
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
}

// LeadSink persists a captured lead.
type LeadSink interface {
	Save(ctx context.Context, lead Lead) error
}

// Config carries the funnel parameters.
type Config struct {
	// Channel is the public channel the user must join, e.g. "@example".
	Channel string
	// FollowupDelay is the wait between the video notice and the feedback question.
	FollowupDelay time.Duration
}

// Engine drives a chat through the funnel. All transitions for one chat are
// serialized by the store's per-chat lock; distinct chats proceed in parallel.
type Engine struct {
	store  *Store
	msgr   Messenger
	member Membership
	sink   LeadSink
	sched  Scheduler
	cfg    Config
}

// NewEngine wires the engine with its collaborators.
func NewEngine(store *Store, msgr Messenger, member Membership, sink LeadSink, sched Scheduler, cfg Config) *Engine {
	if cfg.FollowupDelay <= 0 {
		cfg.FollowupDelay = 10 * time.Minute
	}
	return &Engine{
		store:  store,
		msgr:   msgr,
		member: member,
		sink:   sink,
		sched:  sched,
		cfg:    cfg,
	}
}

// HandleStart resets the chat to the beginning of the funnel and shows the
// language picker. A pending follow-up timer for the chat is cancelled so a
// stale feedback prompt cannot reach the restarted flow.
func (e *Engine) HandleStart(ctx context.Context, chatID, userID int64, username, name string) error {
	lock := e.store.ChatLock(chatID)
	lock.Lock()
	defer lock.Unlock()
	return e.resetLocked(ctx, chatID, userID, username, name)
}

func (e *Engine) resetLocked(ctx context.Context, chatID, userID int64, username, name string) error {
	if e.sched.Cancel(chatID) {
		logger.Debug(ctx, "funnel", "timer.cancelled", slog.Int64("chat_id", chatID))
	}
	prev := State("")
	if old := e.store.Get(chatID); old != nil {
		prev = old.State
	}
	sess := &Session{
		ChatID:   chatID,
		UserID:   userID,
		Username: username,
		Name:     name,
		State:    StateAwaitingLanguage,
	}
	e.store.Put(sess)
	e.logTransition(ctx, sess, prev, "start")
	return e.msgr.Send(ctx, chatID, TextLanguagePrompt, KeyboardLanguages)
}

// HandleText processes free-form text: language labels while a language is
// awaited, everything else as an implicit phone-input attempt. Text from a
// chat with no session is treated as an implicit /start.
func (e *Engine) HandleText(ctx context.Context, chatID, userID int64, username, name, text string) error {
	lock := e.store.ChatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.store.Get(chatID)
	if sess == nil {
		return e.resetLocked(ctx, chatID, userID, username, name)
	}

	switch sess.State {
	case StateAwaitingLanguage:
		if lang, ok := ParseLanguageLabel(text); ok {
			sess.Language = lang
			sess.State = StateAwaitingPhone
			e.logTransition(ctx, sess, StateAwaitingLanguage, "language")
			return e.msgr.Send(ctx, chatID, Text(lang, textPhonePrompt), KeyboardContact)
		}
		// Arbitrary text is tried as a phone number, but the funnel cannot
		// advance past the phone step until a language is chosen.
		if !ValidPhone(NormalizePhone(text)) {
			return e.msgr.Send(ctx, chatID, Text(sess.Language, textInvalidPhone), KeyboardNone)
		}
		return e.msgr.Send(ctx, chatID, TextLanguagePrompt, KeyboardLanguages)
	case StateAwaitingPhone:
		return e.acceptPhoneLocked(ctx, sess, text)
	}
	return nil
}

// HandleContact processes a shared contact card carrying a phone number.
func (e *Engine) HandleContact(ctx context.Context, chatID, userID int64, username, name, rawPhone string) error {
	lock := e.store.ChatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.store.Get(chatID)
	if sess == nil {
		return e.resetLocked(ctx, chatID, userID, username, name)
	}
	if sess.State != StateAwaitingPhone {
		return nil
	}
	return e.acceptPhoneLocked(ctx, sess, rawPhone)
}

func (e *Engine) acceptPhoneLocked(ctx context.Context, sess *Session, raw string) error {
	phone := NormalizePhone(raw)
	if !ValidPhone(phone) {
		logger.Debug(ctx, "funnel", "phone.rejected",
			slog.Int64("chat_id", sess.ChatID),
			slog.Int("len", len(phone)),
		)
		return e.msgr.Send(ctx, sess.ChatID, Text(sess.Language, textInvalidPhone), KeyboardNone)
	}

	sess.Phone = phone
	sess.State = StateAwaitingSubscription
	e.logTransition(ctx, sess, StateAwaitingPhone, "phone")

	prompt := fmt.Sprintf(Text(sess.Language, textSubscribePrompt), e.cfg.Channel)
	return e.msgr.Send(ctx, sess.ChatID, prompt, KeyboardSubscribe)
}

// HandleSubscriptionCheck handles a press of the confirm-subscription button.
// Membership is re-queried on every press.
func (e *Engine) HandleSubscriptionCheck(ctx context.Context, chatID, userID int64, callbackID string) error {
	lock := e.store.ChatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.store.Get(chatID)
	if sess == nil || sess.Language == "" {
		return e.staleSessionLocked(ctx, chatID, userID, callbackID)
	}
	if sess.State != StateAwaitingSubscription {
		return e.msgr.Respond(ctx, callbackID, "", false)
	}

	subscribed, err := e.member.IsSubscribed(ctx, userID)
	if err != nil {
		logger.Error(ctx, "funnel", "membership.check.failed",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return e.msgr.Respond(ctx, callbackID, Text(sess.Language, textTryAgain), true)
	}
	if !subscribed {
		logger.Debug(ctx, "funnel", "subscription.denied",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
		)
		return e.msgr.Respond(ctx, callbackID, Text(sess.Language, textNotSubscribed), true)
	}

	if err := e.msgr.Respond(ctx, callbackID, "", false); err != nil {
		logger.Warn(ctx, "funnel", "callback.ack.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}

	e.saveLead(ctx, sess)

	sess.State = StatePostVideo
	e.logTransition(ctx, sess, StateAwaitingSubscription, "subscription")

	if err := e.msgr.Send(ctx, chatID, Text(sess.Language, textVideoSoon), KeyboardRemove); err != nil {
		return err
	}

	// The timer carries the language captured now, not a later re-read:
	// the session may be reset or advanced before it fires.
	lang := sess.Language
	e.sched.Schedule(chatID, e.cfg.FollowupDelay, func() {
		e.handleTimerFired(chatID, lang)
	})
	logger.Debug(ctx, "funnel", "timer.scheduled",
		slog.Int64("chat_id", chatID),
		slog.Int64("delay_ms", e.cfg.FollowupDelay.Milliseconds()),
		slog.String("lang", string(lang)),
	)
	return nil
}

func (e *Engine) handleTimerFired(chatID int64, lang Language) {
	ctx := logger.WithLogger(context.Background(), logger.Funnel)

	lock := e.store.ChatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.store.Get(chatID)
	if sess == nil || sess.State != StatePostVideo {
		logger.Debug(ctx, "funnel", "timer.stale", slog.Int64("chat_id", chatID))
		return
	}

	sess.State = StateAwaitingFeedback
	e.logTransition(ctx, sess, StatePostVideo, "timer")

	if err := e.msgr.Send(ctx, chatID, Text(lang, textFeedback), KeyboardFeedback); err != nil {
		logger.Error(ctx, "funnel", "feedback.prompt.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}

// HandleFeedback handles a press of the yes/no feedback buttons and closes
// the funnel for the chat.
func (e *Engine) HandleFeedback(ctx context.Context, chatID, userID int64, callbackID, answer string) error {
	lock := e.store.ChatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	sess := e.store.Get(chatID)
	if sess == nil || sess.Language == "" {
		return e.staleSessionLocked(ctx, chatID, userID, callbackID)
	}
	if sess.State != StateAwaitingFeedback {
		return e.msgr.Respond(ctx, callbackID, "", false)
	}

	sess.State = StateCompleted
	e.logTransition(ctx, sess, StateAwaitingFeedback, "feedback")
	logger.Info(ctx, "funnel", "feedback.received",
		slog.Int64("chat_id", chatID),
		slog.String("answer", answer),
	)

	if err := e.msgr.Respond(ctx, callbackID, "", false); err != nil {
		logger.Warn(ctx, "funnel", "callback.ack.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
	return e.msgr.Send(ctx, chatID, Text(sess.Language, textThanks), KeyboardNone)
}

func (e *Engine) staleSessionLocked(ctx context.Context, chatID, userID int64, callbackID string) error {
	if err := e.msgr.Respond(ctx, callbackID, "", false); err != nil {
		logger.Warn(ctx, "funnel", "callback.ack.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
	sess := &Session{ChatID: chatID, UserID: userID, State: StateAwaitingLanguage}
	e.store.Put(sess)
	logger.Warn(ctx, "funnel", "session.stale",
		slog.Int64("chat_id", chatID),
	)
	return e.msgr.Send(ctx, chatID, Text("", textStaleSession), KeyboardNone)
}

func (e *Engine) saveLead(ctx context.Context, sess *Session) {
	if e.sink == nil {
		return
	}
	lead := Lead{
		ChatID:     sess.ChatID,
		UserID:     sess.UserID,
		Username:   sess.Username,
		Name:       sess.Name,
		Phone:      sess.Phone,
		Language:   sess.Language,
		CapturedAt: time.Now().UTC(),
	}
	if err := e.sink.Save(ctx, lead); err != nil {
		// A failed append must not stall the chat flow.
		logger.Error(ctx, "leads", "lead.save.failed",
			slog.Int64("chat_id", sess.ChatID),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "leads", "lead.saved",
		slog.Int64("chat_id", sess.ChatID),
		slog.String("lang", string(sess.Language)),
	)
}

func (e *Engine) logTransition(ctx context.Context, sess *Session, from State, trigger string) {
	logger.Info(ctx, "funnel", "session.transition",
		slog.Int64("chat_id", sess.ChatID),
		slog.String("from", string(from)),
		slog.String("to", string(sess.State)),
		slog.String("trigger", trigger),
		slog.String("lang", string(sess.Language)),
	)
}
