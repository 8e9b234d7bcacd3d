package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/stock_log/data/session"
	"github.com/KotFed0t/stock_log/internal/converter/telebotConverter"
	"github.com/KotFed0t/stock_log/internal/externalApi"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/service"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

type StockLogService interface {
	SearchPrice(ctx context.Context, keyword string) (model.StockQuote, error)
	ResolveStock(ctx context.Context, keyword string) (model.StockEntry, error)
	LogOrder(ctx context.Context, order model.Order) (model.TransactionRecord, model.LedgerTotals, error)
	GetTodayLedger(ctx context.Context) (model.DailyLedger, error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	stockLogService StockLogService
	session         Session
}

func NewController(stockLogService StockLogService, session Session) *Controller {
	return &Controller{
		stockLogService: stockLogService,
		session:         session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(helpMsg)
}

func (ctrl *Controller) Help(c tele.Context) error {
	return c.Send(helpMsg)
}

// Search answers right away for "/search <keyword>", otherwise asks for the keyword.
func (ctrl *Controller) Search(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	// chat input is trimmed here, the resolver matches keywords as given
	keyword := strings.TrimSpace(c.Message().Payload)
	if keyword != "" {
		return ctrl.sendQuote(ctx, c, keyword)
	}

	err := ctrl.saveSession(ctx, c, model.Session{State: model.ExpectingSearchKeyword})
	if err != nil {
		return c.Send(internalErrMsg)
	}
	return c.Send(enterKeywordMsg)
}

func (ctrl *Controller) ProcessSearchKeyword(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	keyword := strings.TrimSpace(c.Message().Text)
	if keyword == "" {
		return c.Send(enterKeywordMsg)
	}

	err := ctrl.saveSession(ctx, c, model.Session{State: model.DefaultState})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return ctrl.sendQuote(ctx, c, keyword)
}

func (ctrl *Controller) sendQuote(ctx context.Context, c tele.Context, keyword string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	quote, err := ctrl.stockLogService.SearchPrice(ctx, keyword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStockNotFound):
			return c.Send(stockNotFoundMsg)
		case errors.Is(err, externalApi.ErrRateLimited):
			return c.Send(rateLimitedMsg)
		case errors.Is(err, service.ErrQuoteUnavailable):
			return c.Send(priceUnavailMsg)
		default:
			slog.Error("got error from stockLogService.SearchPrice", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send(internalErrMsg)
		}
	}

	return c.Send(telebotConverter.QuoteResponse(quote))
}

// InitOrder starts the stock -> quantity -> price dialog for side.
func (ctrl *Controller) InitOrder(side model.Side) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)

		err := ctrl.saveSession(ctx, c, model.Session{State: model.ExpectingOrderStock, Side: side})
		if err != nil {
			return c.Send(internalErrMsg)
		}

		return c.Send(enterStockMsg)
	}
}

// InitOrderFromQuote handles the Buy/Sell buttons under a quote. The symbol is
// already resolved, so the dialog goes straight to the quantity.
func (ctrl *Controller) InitOrderFromQuote(side model.Side) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		_ = c.Respond()

		symbol := c.Callback().Data
		if symbol == "" {
			return c.Send(internalErrMsg)
		}

		err := ctrl.saveSession(ctx, c, model.Session{State: model.ExpectingOrderQuantity, Side: side, Symbol: symbol})
		if err != nil {
			return c.Send(internalErrMsg)
		}

		return c.Send(enterQuantityMsg)
	}
}

func (ctrl *Controller) ProcessOrderStock(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	stock, err := ctrl.stockLogService.ResolveStock(ctx, strings.TrimSpace(c.Message().Text))
	if err != nil {
		if errors.Is(err, service.ErrStockNotFound) || errors.Is(err, service.ErrEmptyKeyword) {
			return c.Send(invalidStockMsg)
		}
		slog.Error("got error from stockLogService.ResolveStock", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	chatSession.Symbol = stock.Symbol
	chatSession.State = model.ExpectingOrderQuantity
	err = ctrl.saveSession(ctx, c, chatSession)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(stock.DisplayName() + "\n" + enterQuantityMsg)
}

func (ctrl *Controller) ProcessOrderQuantity(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(c.Message().Text))
	if err != nil || quantity < 1 {
		return c.Send(invalidQuantityMsg)
	}

	chatSession.Quantity = quantity
	chatSession.State = model.ExpectingOrderPrice
	err = ctrl.saveSession(ctx, c, chatSession)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(enterPriceMsg)
}

func (ctrl *Controller) ProcessOrderPrice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(c.Message().Text))
	if err != nil || !price.IsPositive() {
		return c.Send(invalidPriceMsg)
	}

	rec, totals, err := ctrl.stockLogService.LogOrder(ctx, chatSession.Order(price))

	// the dialog ends here whatever the outcome
	_ = ctrl.saveSession(ctx, c, model.Session{State: model.DefaultState})

	if err != nil {
		switch {
		case errors.Is(err, service.ErrStockNotFound):
			return c.Send(invalidStockMsg)
		case errors.Is(err, service.ErrOrderNotLogged):
			return c.Send(orderNotLoggedMsg)
		default:
			slog.Error("got error from stockLogService.LogOrder", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send(internalErrMsg)
		}
	}

	return c.Send(telebotConverter.OrderLoggedResponse(rec, totals))
}

func (ctrl *Controller) Ledger(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	dl, err := ctrl.stockLogService.GetTodayLedger(ctx)
	if err != nil {
		if errors.Is(err, service.ErrLedgerNotFound) {
			return c.Send(noDataMsg)
		}
		slog.Error("got error from stockLogService.GetTodayLedger", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if len(dl.Rows) == 0 {
		return c.Send(noDataMsg)
	}

	return c.Send(telebotConverter.LedgerResponse(dl))
}

func (ctrl *Controller) Cancel(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	err := ctrl.saveSession(ctx, c, model.Session{State: model.DefaultState})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(cancelledMsg)
}

func (ctrl *Controller) UnexpectedText(c tele.Context) error {
	return c.Send(unexpectedTextMsg)
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, chatKey(c))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.Session{}, nil
		}
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}
	return chatSession, nil
}

func (ctrl *Controller) saveSession(ctx context.Context, c tele.Context, chatSession model.Session) error {
	err := ctrl.session.SetSession(ctx, chatKey(c), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return err
	}
	c.Set("session", chatSession)
	return nil
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}
