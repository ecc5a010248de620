package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/networth_tracker_bot/config"
	"github.com/KotFed0t/networth_tracker_bot/data/session"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/networth_tracker_bot/internal/transport/telegram/middleware"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		// route free-form text by the chat's current session action
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)
		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.Send("start with one of the commands, e.g. /networth")
			}
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("something went wrong...")
		}

		c.Set("session", chatSession)

		switch chatSession.Action {
		case model.ExpectingAccountName:
			return b.ctrl.CreateAccount(c)
		case model.ExpectingPositionInput:
			return b.ctrl.AddPosition(c)
		case model.ExpectingDebtPositionID:
			return b.ctrl.ArchiveDebt(c)
		default:
			slog.Error("unexpected chatSession action", slog.String("rqID", rqID), slog.Any("action", chatSession.Action))
			return c.Send("start with one of the commands, e.g. /networth")
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)

	b.bot.Handle("/networth", b.ctrl.NetWorth)

	b.bot.Handle("/refresh", b.ctrl.Refresh)

	b.bot.Handle("/report", b.ctrl.Report)

	b.bot.Handle("/add_account", b.ctrl.InitAccountCreation)

	b.bot.Handle("/add_position", b.ctrl.InitPositionAdd)

	b.bot.Handle("/archive_debt", b.ctrl.InitDebtArchive)
}
