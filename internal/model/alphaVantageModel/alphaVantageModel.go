package alphaVantageModel

// RawGlobalQuote is the GLOBAL_QUOTE response body. Every field of the
// quote object is a string, e.g. "05. price": "3912.4500".
type RawGlobalQuote struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

const (
	FieldSymbol           = "01. symbol"
	FieldPrice            = "05. price"
	FieldLatestTradingDay = "07. latest trading day"
)
