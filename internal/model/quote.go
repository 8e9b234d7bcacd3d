package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a price observation. The stock it belongs to is known by the caller.
type Quote struct {
	Price            decimal.Decimal
	LatestTradingDay time.Time
}

type StockQuote struct {
	StockEntry
	Quote
}
