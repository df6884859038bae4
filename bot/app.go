package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/funnelbot/bot/funnel"
	"github.com/m3rciful/funnelbot/bot/gateway"
	"github.com/m3rciful/funnelbot/bot/sheets"
	"github.com/m3rciful/funnelbot/bot/storage"
	"github.com/m3rciful/funnelbot/core/bootstrap"
	corecmd "github.com/m3rciful/funnelbot/core/cmd"
	"github.com/m3rciful/funnelbot/core/logger"
	coretelegram "github.com/m3rciful/funnelbot/core/telegram"
	"github.com/m3rciful/funnelbot/core/telegram/callbacks"
	"github.com/m3rciful/funnelbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/funnelbot/core/telegram/helpers"
	"github.com/m3rciful/funnelbot/core/telegram/router"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// App is the assembled funnel bot.
type App struct {
	cfg    *Config
	db     *sqlx.DB
	repo   *storage.LeadRepository
	store  *funnel.Store
	sched  *funnel.TimerScheduler
	engine *funnel.Engine
	gw     *gateway.Gateway
}

// Bootstrap initializes infrastructure and assembles the application.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	repo := storage.NewLeadRepository(res.DB)
	sinks := funnel.MultiSink{repo}
	if cfg.Sheets.Enabled() {
		appender, err := sheets.New(context.Background(), cfg.Sheets)
		if err != nil {
			_ = res.DB.Close()
			return nil, err
		}
		sinks = append(sinks, appender)
		logger.Sheets.Info("spreadsheet sink enabled",
			slog.String("event", "sink.enabled"),
			slog.String("range", cfg.Sheets.Range),
		)
	}

	gw := gateway.New(cfg.Funnel.Channel)
	store := funnel.NewStore()
	sched := funnel.NewTimerScheduler()
	engine := funnel.NewEngine(store, gw, gw, sinks, sched, funnel.Config{
		Channel:       cfg.Funnel.Channel,
		FollowupDelay: time.Duration(cfg.Funnel.FollowupDelaySeconds) * time.Second,
	})

	return &App{
		cfg:    cfg,
		db:     res.DB,
		repo:   repo,
		store:  store,
		sched:  sched,
		engine: engine,
		gw:     gw,
	}, nil
}

// TelegramRunOptions builds the bot runtime wiring: commands, conversation
// routes, callbacks and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Boshlash / Start",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Lead statistics",
		AdminOnly:   true,
		Hidden:      true,
	})

	if err := reg.RegisterCallback(funnel.CallbackCheckSub, a.handleCheckSub); err != nil {
		return coretelegram.RunOptions{}, err
	}
	if err := reg.RegisterCallback(funnel.CallbackYes, a.handleFeedback); err != nil {
		return coretelegram.RunOptions{}, err
	}
	if err := reg.RegisterCallback(funnel.CallbackNo, a.handleFeedback); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Conversation: a.handleConversation,
		Contact:      a.handleContact,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			return a.gw.Bind(rt.Bot, rt.Dispatcher)
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			a.sched.Stop()
			return a.db.Close()
		},
	}, nil
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	return a.engine.HandleStart(ctx, c.Chat().ID, user.ID, user.Username, displayName(user))
}

func (a *App) handleConversation(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	return a.engine.HandleText(ctx, c.Chat().ID, user.ID, user.Username, displayName(user), c.Text())
}

func (a *App) handleContact(c tele.Context) error {
	contact := c.Message().Contact
	if contact == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	return a.engine.HandleContact(ctx, c.Chat().ID, user.ID, user.Username, displayName(user), contact.PhoneNumber)
}

func (a *App) handleCheckSub(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return a.engine.HandleSubscriptionCheck(ctx, c.Chat().ID, c.Sender().ID, cb.ID)
}

func (a *App) handleFeedback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	answer := callbacks.CallbackKey(c)
	return a.engine.HandleFeedback(ctx, c.Chat().ID, c.Sender().ID, cb.ID, answer)
}

func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	count, err := a.repo.Count(ctx)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("📊 Leads captured: %d\nActive sessions: %d", count, a.store.Len()))
}

func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	return name
}
