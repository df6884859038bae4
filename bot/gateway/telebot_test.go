package gateway

import (
	"context"
	"testing"

	"github.com/m3rciful/funnelbot/bot/funnel"
)

func TestUnboundGateway(t *testing.T) {
	g := New("@example")
	if err := g.Send(context.Background(), 1, "hi", funnel.KeyboardNone); err != ErrNotBound {
		t.Fatalf("Send = %v, want ErrNotBound", err)
	}
	if err := g.Respond(context.Background(), "cb", "", false); err != ErrNotBound {
		t.Fatalf("Respond = %v, want ErrNotBound", err)
	}
	if _, err := g.IsSubscribed(context.Background(), 1); err != ErrNotBound {
		t.Fatalf("IsSubscribed = %v, want ErrNotBound", err)
	}
}

func TestBuildMarkup(t *testing.T) {
	if buildMarkup(funnel.KeyboardNone) != nil {
		t.Fatal("KeyboardNone should produce no markup")
	}

	langs := buildMarkup(funnel.KeyboardLanguages)
	if langs == nil || len(langs.ReplyKeyboard) != 3 {
		t.Fatalf("language keyboard rows = %+v, want 3", langs)
	}
	if !langs.ResizeKeyboard {
		t.Fatal("language keyboard should resize")
	}

	contact := buildMarkup(funnel.KeyboardContact)
	if contact == nil || len(contact.ReplyKeyboard) != 1 || !contact.ReplyKeyboard[0][0].Contact {
		t.Fatalf("contact keyboard = %+v, want one contact-request button", contact)
	}

	sub := buildMarkup(funnel.KeyboardSubscribe)
	if sub == nil || len(sub.InlineKeyboard) != 1 || len(sub.InlineKeyboard[0]) != 1 {
		t.Fatalf("subscribe keyboard = %+v, want a single inline button", sub)
	}

	fb := buildMarkup(funnel.KeyboardFeedback)
	if fb == nil || len(fb.InlineKeyboard) != 1 || len(fb.InlineKeyboard[0]) != 2 {
		t.Fatalf("feedback keyboard = %+v, want one row of two buttons", fb)
	}

	remove := buildMarkup(funnel.KeyboardRemove)
	if remove == nil || !remove.RemoveKeyboard {
		t.Fatalf("remove keyboard = %+v", remove)
	}
}
