package funnel

import "testing"

var allTextKeys = []textKey{
	textPhonePrompt,
	textInvalidPhone,
	textSubscribePrompt,
	textNotSubscribed,
	textStaleSession,
	textVideoSoon,
	textFeedback,
	textThanks,
	textTryAgain,
}

func TestTextCoversAllLanguages(t *testing.T) {
	for _, lang := range []Language{LangUZ, LangEN, LangRU} {
		for _, key := range allTextKeys {
			if Text(lang, key) == "" {
				t.Errorf("missing text for lang=%s key=%s", lang, key)
			}
		}
	}
}

func TestTextFallsBackToUzbek(t *testing.T) {
	for _, key := range allTextKeys {
		if got, want := Text("", key), Text(LangUZ, key); got != want {
			t.Errorf("fallback for key=%s: got %q, want %q", key, got, want)
		}
	}
}

func TestParseLanguageLabel(t *testing.T) {
	cases := []struct {
		in   string
		lang Language
		ok   bool
	}{
		{LabelUZ, LangUZ, true},
		{LabelEN, LangEN, true},
		{LabelRU, LangRU, true},
		{"EN", "", false},
		{"hello", "", false},
	}
	for _, tc := range cases {
		lang, ok := ParseLanguageLabel(tc.in)
		if lang != tc.lang || ok != tc.ok {
			t.Errorf("ParseLanguageLabel(%q) = (%q, %v), want (%q, %v)", tc.in, lang, ok, tc.lang, tc.ok)
		}
	}
}
