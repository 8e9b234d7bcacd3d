package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	TradeID    string          `db:"trade_id"`
	Name       string          `db:"name"`
	Symbol     string          `db:"symbol"`
	Side       string          `db:"side"`
	Price      decimal.Decimal `db:"price"`
	Quantity   int             `db:"quantity"`
	TotalPrice decimal.Decimal `db:"total_price"`
	CreatedAt  time.Time       `db:"dt_create"`
}
