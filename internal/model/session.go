package model

import "github.com/shopspring/decimal"

type state int

const (
	DefaultState state = iota
	ExpectingSearchKeyword
	ExpectingOrderStock
	ExpectingOrderQuantity
	ExpectingOrderPrice
)

// Session is the bot conversation state of one chat.
type Session struct {
	State    state
	Side     Side
	Symbol   string
	Quantity int
}

// Order builds the order collected so far with the given price.
func (s Session) Order(price decimal.Decimal) Order {
	return Order{
		Keyword:  s.Symbol,
		Side:     s.Side,
		Quantity: s.Quantity,
		Price:    price,
	}
}
