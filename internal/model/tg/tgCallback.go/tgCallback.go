package tgCallback

// Unique ids of inline buttons. The button data carries the stock symbol.
const (
	BuyStock  string = "buy_stock"
	SellStock string = "sell_stock"
)
