package funnel

// Button labels and callback keys. The labels double as inbound triggers:
// the language picker is a reply keyboard, so a press arrives as plain text.
const (
	LabelUZ      = "🇺🇿 UZ"
	LabelEN      = "🇬🇧 EN"
	LabelRU      = "🇷🇺 RU"
	LabelContact = "📞 Telefon raqamni yuborish"
	LabelConfirm = "✅ Kanalga obuna bo‘ldim"
	LabelYes     = "👍 Ha"
	LabelNo      = "👎 Yo‘q"

	CallbackCheckSub = "check_sub"
	CallbackYes      = "yes"
	CallbackNo       = "no"
)

// TextLanguagePrompt is shown before a language is known, so it carries
// all three languages at once.
const TextLanguagePrompt = "🌐 Tilni tanlang / Choose language / Выберите язык"

type textKey string

const (
	textPhonePrompt     textKey = "phone_prompt"
	textInvalidPhone    textKey = "invalid_phone"
	textSubscribePrompt textKey = "subscribe_prompt"
	textNotSubscribed   textKey = "not_subscribed"
	textStaleSession    textKey = "stale_session"
	textVideoSoon       textKey = "video_soon"
	textFeedback        textKey = "feedback_question"
	textThanks          textKey = "thanks"
	textTryAgain        textKey = "try_again"
)

var messages = map[Language]map[textKey]string{
	LangUZ: {
		textPhonePrompt:     "📱 Iltimos, telefon raqamingizni yuboring.",
		textInvalidPhone:    "❌ Telefon raqam noto‘g‘ri formatda.",
		textSubscribePrompt: "Kanalga obuna bo‘ling va tasdiqlang:\n%s",
		textNotSubscribed:   "Avval kanalga obuna bo‘ling!",
		textStaleSession:    "Iltimos avval /start bosing",
		textVideoSoon:       "🎥 Video tez orada yuklanadi.",
		textFeedback:        "Sizga ko‘rsatmamiz ma’qul keldimi?",
		textThanks:          "Ajoyib! 😊 Tez orada siz bilan aloqaga chiqamiz.",
		textTryAgain:        "Xatolik yuz berdi, keyinroq urinib ko‘ring.",
	},
	LangEN: {
		textPhonePrompt:     "📱 Please share your phone number.",
		textInvalidPhone:    "❌ Invalid phone number format.",
		textSubscribePrompt: "Subscribe to the channel and confirm:\n%s",
		textNotSubscribed:   "Please subscribe to the channel first!",
		textStaleSession:    "Please press /start first",
		textVideoSoon:       "🎥 Video will be uploaded soon.",
		textFeedback:        "Did you like the presentation?",
		textThanks:          "Great! 😊 We will contact you soon.",
		textTryAgain:        "Something went wrong, please try again later.",
	},
	LangRU: {
		textPhonePrompt:     "📱 Пожалуйста, отправьте номер телефона.",
		textInvalidPhone:    "❌ Неверный формат номера телефона.",
		textSubscribePrompt: "Подпишитесь на канал и подтвердите:\n%s",
		textNotSubscribed:   "Сначала подпишитесь на канал!",
		textStaleSession:    "Пожалуйста, сначала нажмите /start",
		textVideoSoon:       "🎥 Видео будет загружено в ближайшее время.",
		textFeedback:        "Вам понравилась презентация?",
		textThanks:          "Отлично! 😊 Мы скоро с вами свяжемся.",
		textTryAgain:        "Произошла ошибка, попробуйте позже.",
	},
}

// Text returns the message for the given language and key, falling back
// to Uzbek when the language is unset or the key is missing.
func Text(lang Language, key textKey) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return messages[LangUZ][key]
}
