// Package gateway adapts the Telegram transport to the funnel engine's
// messaging, callback and membership boundaries.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/m3rciful/funnelbot/bot/funnel"
	"github.com/m3rciful/funnelbot/core/logger"
	"github.com/m3rciful/funnelbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/funnelbot/core/telegram/sender"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned when the gateway is used before Bind.
var ErrNotBound = errors.New("gateway: bot not bound")

// Gateway implements funnel.Messenger and funnel.Membership on top of
// telebot. It is constructed before the bot exists and bound to the live
// bot instance from the run lifecycle.
type Gateway struct {
	channel string

	mu   sync.RWMutex
	bot  *tele.Bot
	disp *tgsender.Dispatcher
	chat *tele.Chat
}

// New creates an unbound gateway for the given channel username ("@name").
func New(channel string) *Gateway {
	return &Gateway{channel: channel}
}

// Bind attaches the live bot and outbound dispatcher and resolves the
// subscription channel. Resolution failure is fatal: without the channel the
// funnel cannot verify subscriptions.
func (g *Gateway) Bind(bot *tele.Bot, disp *tgsender.Dispatcher) error {
	chat, err := bot.ChatByUsername(g.channel)
	if err != nil {
		return fmt.Errorf("gateway: resolve channel %s: %w", g.channel, err)
	}

	g.mu.Lock()
	g.bot = bot
	g.disp = disp
	g.chat = chat
	g.mu.Unlock()

	logger.TWire.Info("channel resolved",
		slog.String("event", "gateway.bound"),
		slog.String("channel", g.channel),
		slog.Int64("channel_id", chat.ID),
	)
	return nil
}

// Send delivers a text message with the requested control set. Delivery goes
// through the async dispatcher so a slow Telegram API call never blocks the
// update-processing path.
func (g *Gateway) Send(ctx context.Context, chatID int64, text string, kb funnel.Keyboard) error {
	g.mu.RLock()
	bot, disp := g.bot, g.disp
	g.mu.RUnlock()
	if bot == nil {
		return ErrNotBound
	}

	markup := buildMarkup(kb)
	run := func() error {
		var err error
		if markup != nil {
			_, err = bot.Send(tele.ChatID(chatID), text, markup)
		} else {
			_, err = bot.Send(tele.ChatID(chatID), text)
		}
		return err
	}

	if disp == nil {
		return run()
	}
	if err := disp.Enqueue(ctx, "send_message", run); err != nil {
		// Queue saturation falls back to a synchronous send rather than
		// silently dropping the funnel prompt.
		logger.Warn(ctx, "tg.sender", "enqueue.fallback",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return nil
}

// Respond answers a callback query. Alerts block until dismissed; an empty
// text acts as a silent acknowledgement.
func (g *Gateway) Respond(_ context.Context, callbackID, text string, showAlert bool) error {
	g.mu.RLock()
	bot := g.bot
	g.mu.RUnlock()
	if bot == nil {
		return ErrNotBound
	}
	return bot.Respond(
		&tele.Callback{ID: callbackID},
		&tele.CallbackResponse{Text: text, ShowAlert: showAlert},
	)
}

// IsSubscribed queries the user's membership in the channel. Member,
// administrator and creator all count as subscribed.
func (g *Gateway) IsSubscribed(_ context.Context, userID int64) (bool, error) {
	g.mu.RLock()
	bot, chat := g.bot, g.chat
	g.mu.RUnlock()
	if bot == nil || chat == nil {
		return false, ErrNotBound
	}

	member, err := bot.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return false, fmt.Errorf("gateway: chat member lookup: %w", err)
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	}
	return false, nil
}

func buildMarkup(kb funnel.Keyboard) *tele.ReplyMarkup {
	switch kb {
	case funnel.KeyboardLanguages:
		return keyboard.ReplyButtons(
			[]string{funnel.LabelUZ},
			[]string{funnel.LabelEN},
			[]string{funnel.LabelRU},
		)
	case funnel.KeyboardContact:
		return keyboard.ContactButton(funnel.LabelContact)
	case funnel.KeyboardSubscribe:
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: funnel.LabelConfirm, Unique: funnel.CallbackCheckSub},
		})
	case funnel.KeyboardFeedback:
		return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
			{Text: funnel.LabelYes, Unique: funnel.CallbackYes},
			{Text: funnel.LabelNo, Unique: funnel.CallbackNo},
		})
	case funnel.KeyboardRemove:
		return keyboard.RemoveKeyboard()
	}
	return nil
}
