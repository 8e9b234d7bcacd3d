package model

import (
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewReferenceTable(t *testing.T) {
	table := NewReferenceTable([]StockEntry{
		{Symbol: "infy", CompanyName: "Infosys"},
		{Symbol: "TCS", CompanyName: "Tata Consultancy Services"},
		{Symbol: "INFY", CompanyName: "Infosys Ltd"},
	})

	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}

	e, ok := table.Lookup("INFY")
	if !ok || e.CompanyName != "Infosys Ltd" {
		t.Errorf("Lookup(INFY) = %+v, %v; want the last name for a duplicated symbol", e, ok)
	}
	if _, ok := table.Lookup("infy"); ok {
		t.Error("Lookup is expected to take upper-cased symbols only")
	}

	entries := slices.Collect(table.All())
	if entries[0].Symbol != "INFY" || entries[1].Symbol != "TCS" {
		t.Errorf("All() = %+v, want source order", entries)
	}
	entries[0].CompanyName = "changed"
	if e, _ := table.Lookup("INFY"); e.CompanyName == "changed" {
		t.Error("All() exposes the table storage")
	}
}

func TestReferenceTableAll(t *testing.T) {
	table := NewReferenceTable([]StockEntry{
		{Symbol: "INFY", CompanyName: "Infosys"},
		{Symbol: "TCS", CompanyName: "Tata Consultancy Services"},
		{Symbol: "WIPRO", CompanyName: "Wipro"},
	})

	var symbols []string
	for e := range table.All() {
		symbols = append(symbols, e.Symbol)
	}
	if strings.Join(symbols, ",") != "INFY,TCS,WIPRO" {
		t.Errorf("All() yielded %v, want source order", symbols)
	}

	visited := 0
	for e := range table.All() {
		visited++
		if e.Symbol == "TCS" {
			break
		}
	}
	if visited != 2 {
		t.Errorf("visited %d entries before break, want 2", visited)
	}
}

func TestSymbolFromDisplayName(t *testing.T) {
	tests := map[string]string{
		"Infosys (INFY)":                   "INFY",
		"Tata Consultancy Services (TCS) ": "TCS",
		"Bajaj (Auto) (BAJAJ-AUTO)":        "BAJAJ-AUTO",
		"Infosys":                          "",
		"":                                 "",
	}
	for name, want := range tests {
		if got := SymbolFromDisplayName(name); got != want {
			t.Errorf("SymbolFromDisplayName(%q) = %q, want %q", name, got, want)
		}
	}

	e := StockEntry{Symbol: "INFY", CompanyName: "Infosys"}
	if got := SymbolFromDisplayName(e.DisplayName()); got != e.Symbol {
		t.Errorf("display name round trip = %q", got)
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{in: "Buy", want: SideBuy},
		{in: " sell ", want: SideSell},
		{in: "BUY", want: SideBuy},
		{in: "hold", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSide(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOrderValidate(t *testing.T) {
	valid := Order{Keyword: "INFY", Side: SideBuy, Quantity: 1, Price: decimal.RequireFromString("0.01")}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}

	tests := map[string]func(o *Order){
		"empty keyword":     func(o *Order) { o.Keyword = "" },
		"unknown side":      func(o *Order) { o.Side = "Short" },
		"zero quantity":     func(o *Order) { o.Quantity = 0 },
		"negative quantity": func(o *Order) { o.Quantity = -3 },
		"zero price":        func(o *Order) { o.Price = decimal.Zero },
		"negative price":    func(o *Order) { o.Price = decimal.NewFromInt(-1) },
	}
	for name, modify := range tests {
		o := valid
		modify(&o)
		if err := o.Validate(); err == nil {
			t.Errorf("%s: order accepted", name)
		}
	}
}

func TestLedgerTotalsAdd(t *testing.T) {
	totals := LedgerTotals{}
	totals = totals.Add(TransactionRecord{Side: SideBuy, TotalPrice: decimal.NewFromInt(1000)})
	totals = totals.Add(TransactionRecord{Side: SideSell, TotalPrice: decimal.NewFromInt(550)})
	totals = totals.Add(TransactionRecord{Side: SideBuy, TotalPrice: decimal.RequireFromString("0.1")})
	totals = totals.Add(TransactionRecord{Side: "", TotalPrice: decimal.NewFromInt(99)})

	if !totals.TotalBuy.Equal(decimal.RequireFromString("1000.1")) {
		t.Errorf("TotalBuy = %s, want 1000.1", totals.TotalBuy)
	}
	if !totals.TotalSell.Equal(decimal.NewFromInt(550)) {
		t.Errorf("TotalSell = %s, want 550", totals.TotalSell)
	}
}

func TestSessionOrder(t *testing.T) {
	s := Session{State: ExpectingOrderPrice, Side: SideSell, Symbol: "TCS", Quantity: 5}

	o := s.Order(decimal.NewFromInt(110))
	if o.Keyword != "TCS" || o.Side != SideSell || o.Quantity != 5 || !o.Price.Equal(decimal.NewFromInt(110)) {
		t.Errorf("Order() = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("order from a complete session is invalid: %v", err)
	}
}
