// Package cli implements the stocklog command line commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KotFed0t/stock_log/internal/externalApi"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/service"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type StockLogService interface {
	SearchPrice(ctx context.Context, keyword string) (model.StockQuote, error)
	LogOrder(ctx context.Context, order model.Order) (model.TransactionRecord, model.LedgerTotals, error)
	GetLedger(ctx context.Context, date time.Time) (model.DailyLedger, error)
	RecomputeLedger(ctx context.Context, date time.Time) (model.LedgerTotals, error)
	GetTradeHistory(ctx context.Context, from, to time.Time) ([]model.TransactionRecord, error)
}

// BotRunner runs the telegram bot until ctx is cancelled.
type BotRunner func(ctx context.Context) error

// App holds what every command needs. Output goes to Out, problems to Err.
type App struct {
	Service StockLogService
	RunBot  BotRunner
	Out     io.Writer
	Err     io.Writer
	Now     func() time.Time
}

// Register adds the stocklog commands to c.
func Register(c *subcommands.Commander, app *App) {
	if app.Now == nil {
		app.Now = time.Now
	}

	c.Register(&searchCmd{app: app}, "prices")

	c.Register(&orderCmd{app: app, side: model.SideBuy}, "ledger")
	c.Register(&orderCmd{app: app, side: model.SideSell}, "ledger")
	c.Register(&ledgerCmd{app: app}, "ledger")
	c.Register(&recomputeCmd{app: app}, "ledger")
	c.Register(&historyCmd{app: app}, "ledger")

	if app.RunBot != nil {
		c.Register(&botCmd{app: app}, "")
	}
}

// fail prints the user message for err and returns the matching exit status.
func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(a.Err, userMessage(err))
	return subcommands.ExitFailure
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyKeyword):
		return "Please enter a stock name or symbol."
	case errors.Is(err, service.ErrStockNotFound):
		return "Stock not found. Please check the name or symbol and try again."
	case errors.Is(err, externalApi.ErrRateLimited):
		return "Price service request limit reached. Please try again in a minute."
	case errors.Is(err, externalApi.ErrNoApiKey):
		return "ALPHA_VANTAGE_API_KEY is not set, prices are unavailable."
	case errors.Is(err, service.ErrQuoteUnavailable):
		return "Unable to fetch real-time price. Please try again."
	case errors.Is(err, service.ErrInvalidOrder):
		return fmt.Sprintf("Please enter valid stock name, quantity, and price: %v", err)
	case errors.Is(err, service.ErrOrderNotLogged):
		return fmt.Sprintf("Error writing to the ledger, order NOT logged: %v", err)
	case errors.Is(err, service.ErrLedgerNotFound):
		return "No data logged yet."
	case errors.Is(err, service.ErrReferenceUnavailable):
		return fmt.Sprintf("Error loading reference data: %v", err)
	case errors.Is(err, service.ErrJournalDisabled):
		return "Trade history needs the Postgres journal (PG_ENABLED=true)."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// parseDate parses an optional YYYY-MM-DD flag value in local time.
func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}
