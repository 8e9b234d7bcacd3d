package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/service"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type searchCmd struct {
	app *App
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "show the current price of a stock" }
func (*searchCmd) Usage() string {
	return `stocklog search <name or symbol>

  Resolves the stock against the reference table and fetches its price.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx = utils.NewCtxWithRqID(ctx)

	quote, err := c.app.Service.SearchPrice(ctx, strings.Join(f.Args(), " "))
	if err != nil {
		return c.app.fail(err)
	}

	fmt.Fprintf(c.app.Out, "%s\nCurrent price: %s\n", quote.DisplayName(), money(quote.Price))
	if !quote.LatestTradingDay.IsZero() {
		fmt.Fprintf(c.app.Out, "Latest trading day: %s\n", quote.LatestTradingDay.Format(time.DateOnly))
	}
	return subcommands.ExitSuccess
}

type orderCmd struct {
	app      *App
	side     model.Side
	quantity int
	price    string
}

func (c *orderCmd) Name() string { return strings.ToLower(string(c.side)) }
func (c *orderCmd) Synopsis() string {
	return fmt.Sprintf("log a %s order in today's ledger", strings.ToLower(string(c.side)))
}
func (c *orderCmd) Usage() string {
	return fmt.Sprintf(`stocklog %s -q <quantity> -p <price> <name or symbol>

  Appends the order to today's ledger and prints the updated totals.
`, c.Name())
}

func (c *orderCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.quantity, "q", 1, "Number of shares, at least 1.")
	f.StringVar(&c.price, "p", "", "Price per share, greater than 0.")
}

func (c *orderCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx = utils.NewCtxWithRqID(ctx)

	keyword := strings.Join(f.Args(), " ")
	if keyword == "" || c.price == "" {
		fmt.Fprint(c.app.Err, c.Usage())
		return subcommands.ExitUsageError
	}

	price, err := decimal.NewFromString(c.price)
	if err != nil {
		fmt.Fprintf(c.app.Err, "Invalid price %q.\n", c.price)
		return subcommands.ExitUsageError
	}

	fmt.Fprintf(c.app.Out, "Total transaction value: %s\n", money(price.Mul(decimal.NewFromInt(int64(c.quantity)))))

	rec, totals, err := c.app.Service.LogOrder(ctx, model.Order{
		Keyword:  keyword,
		Side:     c.side,
		Quantity: c.quantity,
		Price:    price,
	})
	if err != nil {
		return c.app.fail(err)
	}

	fmt.Fprintf(
		c.app.Out,
		"Order logged: %d shares of %s %s at %s per share. Total: %s\n",
		rec.Quantity, rec.Name, strings.ToLower(string(rec.Side)), money(rec.Price), money(rec.TotalPrice),
	)
	fmt.Fprintf(c.app.Out, "Total Buy: %s\nTotal Sell: %s\n", money(totals.TotalBuy), money(totals.TotalSell))
	return subcommands.ExitSuccess
}

type ledgerCmd struct {
	app  *App
	date string
}

func (*ledgerCmd) Name() string     { return "ledger" }
func (*ledgerCmd) Synopsis() string { return "print the transactions of a day" }
func (*ledgerCmd) Usage() string {
	return `stocklog ledger [-d YYYY-MM-DD]

  Prints the ledger of the given day, today by default.
`
}

func (c *ledgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Ledger date, defaults to today.")
}

func (c *ledgerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx = utils.NewCtxWithRqID(ctx)

	date, err := parseDate(c.date, c.app.Now())
	if err != nil {
		fmt.Fprintln(c.app.Err, err)
		return subcommands.ExitUsageError
	}

	dl, err := c.app.Service.GetLedger(ctx, date)
	if err != nil && !errors.Is(err, service.ErrLedgerNotFound) {
		return c.app.fail(err)
	}
	if len(dl.Rows) == 0 {
		fmt.Fprintln(c.app.Out, "No data logged yet.")
		return subcommands.ExitSuccess
	}

	c.app.printRecords(dl.Rows)
	fmt.Fprintf(c.app.Out, "\nTotal Buy: %s\nTotal Sell: %s\n", money(dl.TotalBuy), money(dl.TotalSell))
	return subcommands.ExitSuccess
}

type recomputeCmd struct {
	app  *App
	date string
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "recompute the totals of a ledger" }
func (*recomputeCmd) Usage() string {
	return `stocklog recompute [-d YYYY-MM-DD]

  Recomputes Total Buy and Total Sell from the rows of the ledger, e.g. after
  the file was edited by hand.
`
}

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Ledger date, defaults to today.")
}

func (c *recomputeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx = utils.NewCtxWithRqID(ctx)

	date, err := parseDate(c.date, c.app.Now())
	if err != nil {
		fmt.Fprintln(c.app.Err, err)
		return subcommands.ExitUsageError
	}

	totals, err := c.app.Service.RecomputeLedger(ctx, date)
	if err != nil {
		return c.app.fail(err)
	}

	fmt.Fprintf(c.app.Out, "Total Buy: %s\nTotal Sell: %s\n", money(totals.TotalBuy), money(totals.TotalSell))
	return subcommands.ExitSuccess
}

type historyCmd struct {
	app  *App
	from string
	to   string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list journaled trades of a period" }
func (*historyCmd) Usage() string {
	return `stocklog history [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Lists trades from the Postgres journal. Both dates are inclusive; the period
  defaults to the last 30 days.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day, defaults to 30 days ago.")
	f.StringVar(&c.to, "to", "", "Last day, defaults to today.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx = utils.NewCtxWithRqID(ctx)

	now := c.app.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	from, err := parseDate(c.from, today.AddDate(0, 0, -30))
	if err != nil {
		fmt.Fprintln(c.app.Err, err)
		return subcommands.ExitUsageError
	}
	to, err := parseDate(c.to, today)
	if err != nil {
		fmt.Fprintln(c.app.Err, err)
		return subcommands.ExitUsageError
	}

	trades, err := c.app.Service.GetTradeHistory(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return c.app.fail(err)
	}
	if len(trades) == 0 {
		fmt.Fprintln(c.app.Out, "No trades in this period.")
		return subcommands.ExitSuccess
	}

	c.app.printRecords(trades)
	return subcommands.ExitSuccess
}

type botCmd struct {
	app *App
}

func (*botCmd) Name() string     { return "bot" }
func (*botCmd) Synopsis() string { return "run the telegram bot" }
func (*botCmd) Usage() string {
	return `stocklog bot

  Serves the telegram bot and the scheduled ledger backup until interrupted.
`
}

func (*botCmd) SetFlags(*flag.FlagSet) {}

func (c *botCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.app.RunBot(ctx); err != nil {
		fmt.Fprintf(c.app.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printRecords prints records with the ledger column headers.
func (a *App) printRecords(records []model.TransactionRecord) {
	w := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tDate and Time\tPrice\tQuantity\tOrder Type\tTotal Price")
	for _, r := range records {
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Name, r.CreatedAt.Format(time.DateTime), money(r.Price), r.Quantity, r.Side, money(r.TotalPrice),
		)
	}
	w.Flush()
}
