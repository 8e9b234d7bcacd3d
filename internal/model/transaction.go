package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}

// PriceScale is the number of decimal places kept for an order price. Ledger
// cells hold float64 and the trade journal stores NUMERIC(18,4), so a price
// with more places would not read back as written.
const PriceScale = 4

// Order is a transaction as entered by the user, before symbol resolution.
type Order struct {
	Keyword  string
	Side     Side
	Quantity int
	Price    decimal.Decimal
}

func (o Order) Validate() error {
	if o.Keyword == "" {
		return fmt.Errorf("empty stock name")
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("unknown order type %q", o.Side)
	}
	if o.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", o.Quantity)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("price must be positive, got %s", o.Price)
	}
	return nil
}

// TransactionRecord is one ledger row. ID and Symbol are not stored in the spreadsheet.
type TransactionRecord struct {
	ID         string
	Name       string
	Symbol     string
	CreatedAt  time.Time
	Price      decimal.Decimal
	Quantity   int
	Side       Side
	TotalPrice decimal.Decimal
}

type LedgerTotals struct {
	TotalBuy  decimal.Decimal
	TotalSell decimal.Decimal
}

// Add accounts rec in the totals of its side.
func (t LedgerTotals) Add(rec TransactionRecord) LedgerTotals {
	switch rec.Side {
	case SideBuy:
		t.TotalBuy = t.TotalBuy.Add(rec.TotalPrice)
	case SideSell:
		t.TotalSell = t.TotalSell.Add(rec.TotalPrice)
	}
	return t
}

type DailyLedger struct {
	Date time.Time
	Rows []TransactionRecord
	LedgerTotals
}
