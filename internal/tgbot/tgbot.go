package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/stock_log/config"
	"github.com/KotFed0t/stock_log/data/session"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/model/tg/tgCallback.go"
	"github.com/KotFed0t/stock_log/internal/transport/telegram"
	customMW "github.com/KotFed0t/stock_log/internal/transport/telegram/middleware"
	"github.com/KotFed0t/stock_log/utils"
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

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) (*TGBot, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}, nil
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
	b.bot.Handle(tele.OnText, b.dispatchText)

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/help", b.ctrl.Help)
	b.bot.Handle("/search", b.ctrl.Search)
	b.bot.Handle("/buy", b.ctrl.InitOrder(model.SideBuy))
	b.bot.Handle("/sell", b.ctrl.InitOrder(model.SideSell))
	b.bot.Handle("/ledger", b.ctrl.Ledger)
	b.bot.Handle("/cancel", b.ctrl.Cancel)

	b.bot.Handle(&tele.Btn{Unique: tgCallback.BuyStock}, b.ctrl.InitOrderFromQuote(model.SideBuy))
	b.bot.Handle(&tele.Btn{Unique: tgCallback.SellStock}, b.ctrl.InitOrderFromQuote(model.SideSell))
}

// dispatchText picks the controller method for free text by the chat's dialog step.
func (b *TGBot) dispatchText(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("Something went wrong, please try again later.")
	}

	c.Set("session", chatSession)

	switch chatSession.State {
	case model.ExpectingSearchKeyword:
		return b.ctrl.ProcessSearchKeyword(c)
	case model.ExpectingOrderStock:
		return b.ctrl.ProcessOrderStock(c)
	case model.ExpectingOrderQuantity:
		return b.ctrl.ProcessOrderQuantity(c)
	case model.ExpectingOrderPrice:
		return b.ctrl.ProcessOrderPrice(c)
	default:
		slog.Debug("text outside of a dialog", slog.String("rqID", rqID), slog.Any("state", chatSession.State))
		return b.ctrl.UnexpectedText(c)
	}
}
