package alphaVantageApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/stock_log/config"
	"github.com/KotFed0t/stock_log/internal/externalApi"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/model/alphaVantageModel"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const tradingDayLayout = "2006-01-02"

type AlphaVantageApi struct {
	client         *resty.Client
	apiKey         string
	exchangeSuffix string
}

func New(cfg *config.Config) *AlphaVantageApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AlphaVantage.Url)
	return &AlphaVantageApi{
		client:         client,
		apiKey:         cfg.API.AlphaVantage.ApiKey,
		exchangeSuffix: cfg.API.AlphaVantage.ExchangeSuffix,
	}
}

// GetGlobalQuote returns the latest traded price of symbol on the configured exchange.
//
// A missing price yields externalApi.ErrNotFound, a throttled key externalApi.ErrRateLimited
// and anything that prevented reading a JSON body externalApi.ErrTransport.
// Without an api key nothing is sent and externalApi.ErrNoApiKey is returned.
func (a *AlphaVantageApi) GetGlobalQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AlphaVantageApi.GetGlobalQuote"

	if a.apiKey == "" {
		return model.Quote{}, externalApi.ErrNoApiKey
	}

	url := "/query"
	params := map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   a.exchangeSymbol(symbol),
		"apikey":   a.apiKey,
	}

	slog.Debug("start AlphaVantageApi.GetGlobalQuote request", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", params["symbol"]))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, fmt.Errorf("%w: %w", externalApi.ErrTransport, err)
	}

	if resp.IsError() {
		slog.Error("unexpected AlphaVantageApi status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return model.Quote{}, fmt.Errorf("%w: http status %d", externalApi.ErrTransport, resp.StatusCode())
	}

	rawQuote := alphaVantageModel.RawGlobalQuote{}
	err = json.Unmarshal(resp.Body(), &rawQuote)
	if err != nil {
		slog.Error("can't unmarshall response into alphaVantageModel.RawGlobalQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, fmt.Errorf("%w: %w", externalApi.ErrTransport, err)
	}

	quote, err := a.parseRawGlobalQuote(symbol, rawQuote)
	if err != nil {
		slog.Warn("no price in AlphaVantageApi response", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	slog.Debug("AlphaVantageApi.GetGlobalQuote request complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("price", quote.Price.String()))

	return quote, nil
}

func (a *AlphaVantageApi) exchangeSymbol(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if a.exchangeSuffix == "" {
		return symbol
	}
	return symbol + "." + a.exchangeSuffix
}

func (a *AlphaVantageApi) parseRawGlobalQuote(symbol string, rawQuote alphaVantageModel.RawGlobalQuote) (model.Quote, error) {
	switch {
	case rawQuote.Note != "":
		return model.Quote{}, fmt.Errorf("%w: %s", externalApi.ErrRateLimited, rawQuote.Note)
	case rawQuote.Information != "":
		return model.Quote{}, fmt.Errorf("%w: %s", externalApi.ErrRateLimited, rawQuote.Information)
	case rawQuote.ErrorMessage != "":
		return model.Quote{}, fmt.Errorf("%w: %s", externalApi.ErrNotFound, rawQuote.ErrorMessage)
	}

	rawPrice, ok := rawQuote.GlobalQuote[alphaVantageModel.FieldPrice]
	if !ok || rawPrice == "" {
		return model.Quote{}, fmt.Errorf("%w: no %q for %s", externalApi.ErrNotFound, alphaVantageModel.FieldPrice, symbol)
	}

	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: invalid price %q: %w", externalApi.ErrNotFound, rawPrice, err)
	}

	if !price.IsPositive() {
		return model.Quote{}, fmt.Errorf("%w: non-positive price %s", externalApi.ErrNotFound, price)
	}

	quote := model.Quote{Price: price}

	if day, ok := rawQuote.GlobalQuote[alphaVantageModel.FieldLatestTradingDay]; ok {
		if t, err := time.Parse(tradingDayLayout, day); err == nil {
			quote.LatestTradingDay = t
		}
	}

	return quote, nil
}
