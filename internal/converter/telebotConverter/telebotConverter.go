package telebotConverter

import (
	"fmt"
	"strings"
	"time"

	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/model/tg/tgCallback.go"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

// maxLedgerRows keeps the ledger message under the Telegram message size limit.
const maxLedgerRows = 40

func Money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func QuoteResponse(q model.StockQuote) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📈 %s\n", q.DisplayName()))
	sb.WriteString(fmt.Sprintf("💰 Current price: %s\n", Money(q.Price)))
	if !q.LatestTradingDay.IsZero() {
		sb.WriteString(fmt.Sprintf("📅 Latest trading day: %s\n", q.LatestTradingDay.Format(time.DateOnly)))
	}

	markup.Inline(markup.Row(
		markup.Data("🟢 Buy", tgCallback.BuyStock, q.Symbol),
		markup.Data("🔴 Sell", tgCallback.SellStock, q.Symbol),
	))

	return sb.String(), markup
}

func OrderLoggedResponse(rec model.TransactionRecord, totals model.LedgerTotals) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"✅ Order logged: %d shares of %s %s at %s per share. Total: %s\n\n",
		rec.Quantity, rec.Name, strings.ToLower(string(rec.Side)), Money(rec.Price), Money(rec.TotalPrice),
	))
	writeTotals(&sb, totals)

	return sb.String()
}

func LedgerResponse(dl model.DailyLedger) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📋 Transactions %s\n\n", dl.Date.Format(time.DateOnly)))

	rows := dl.Rows
	if len(rows) > maxLedgerRows {
		sb.WriteString(fmt.Sprintf("… %d earlier transactions\n", len(rows)-maxLedgerRows))
		rows = rows[len(rows)-maxLedgerRows:]
	}

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf(
			"%s %s %s %d × %s = %s\n",
			r.CreatedAt.Format(time.TimeOnly), r.Side, r.Name, r.Quantity, Money(r.Price), Money(r.TotalPrice),
		))
	}
	sb.WriteString("\n")
	writeTotals(&sb, dl.LedgerTotals)

	return sb.String()
}

func writeTotals(sb *strings.Builder, totals model.LedgerTotals) {
	sb.WriteString(fmt.Sprintf("Total Buy: %s\n", Money(totals.TotalBuy)))
	sb.WriteString(fmt.Sprintf("Total Sell: %s", Money(totals.TotalSell)))
}
