package funnel

import "time"

// State identifies the position of a chat inside the lead funnel.
// The funnel is strictly linear and forward-only; /start is the only
// transition back to the beginning.
type State string

const (
	StateStart                State = "start"
	StateAwaitingLanguage     State = "awaiting_language"
	StateAwaitingPhone        State = "awaiting_phone"
	StateAwaitingSubscription State = "awaiting_subscription"
	StatePostVideo            State = "post_video"
	StateAwaitingFeedback     State = "awaiting_feedback"
	StateCompleted            State = "completed"
)

// Language is the conversation language chosen by the user.
type Language string

const (
	LangUZ Language = "UZ"
	LangEN Language = "EN"
	LangRU Language = "RU"
)

// Session holds per-chat funnel progress. One per chat id.
// Language is set once on the language-selection transition and phone once
// on the phone-capture transition; /start clears both.
type Session struct {
	ChatID   int64
	UserID   int64
	Username string
	Name     string
	State    State
	Language Language
	Phone    string
}

// Lead is a captured contact ready for persistence.
type Lead struct {
	ChatID     int64
	UserID     int64
	Username   string
	Name       string
	Phone      string
	Language   Language
	CapturedAt time.Time
}

// ParseLanguageLabel maps a language-picker button label to a Language.
func ParseLanguageLabel(text string) (Language, bool) {
	switch text {
	case LabelUZ:
		return LangUZ, true
	case LabelEN:
		return LangEN, true
	case LabelRU:
		return LangRU, true
	}
	return "", false
}
