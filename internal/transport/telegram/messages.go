package telegram

const (
	internalErrMsg     = "Something went wrong, please try again later."
	helpMsg            = "📒 Stock log\n\n/search <name or symbol> - current price\n/buy - log a buy order\n/sell - log a sell order\n/ledger - today's transactions\n/cancel - cancel the current input"
	enterKeywordMsg    = "Enter stock name or symbol to search:"
	enterStockMsg      = "Enter stock name or symbol:"
	enterQuantityMsg   = "Enter quantity:"
	enterPriceMsg      = "Enter price per share:"
	invalidQuantityMsg = "Quantity must be a whole number of at least 1."
	invalidPriceMsg    = "Price must be a number greater than 0."
	stockNotFoundMsg   = "Stock not found. Please check the name or symbol and try again."
	invalidStockMsg    = "Invalid stock name or symbol. Please enter a correct stock name or symbol from the Indian stock market."
	priceUnavailMsg    = "Unable to fetch real-time price. Please try again."
	rateLimitedMsg     = "Price service request limit reached. Please try again in a minute."
	orderNotLoggedMsg  = "Error writing to the ledger, order NOT logged."
	noDataMsg          = "No data logged yet."
	cancelledMsg       = "Cancelled."
	unexpectedTextMsg  = "Choose a command first. /help lists them."
)
