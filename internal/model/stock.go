package model

import (
	"fmt"
	"iter"
	"strings"
)

type StockEntry struct {
	Symbol      string
	CompanyName string
}

// DisplayName is the ledger "Name" column value, e.g. "Infosys (INFY)".
func (e StockEntry) DisplayName() string {
	return fmt.Sprintf("%s (%s)", e.CompanyName, e.Symbol)
}

// SymbolFromDisplayName extracts the trailing "(SYMBOL)" from a ledger name.
func SymbolFromDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ")") {
		return ""
	}
	open := strings.LastIndex(name, "(")
	if open < 0 {
		return ""
	}
	return name[open+1 : len(name)-1]
}

// ReferenceTable is the symbol -> company name lookup loaded once at startup.
// Symbols are stored upper-cased and are unique; entries keep source order.
// It must not be modified after construction.
type ReferenceTable struct {
	entries []StockEntry
	index   map[string]int
}

func NewReferenceTable(entries []StockEntry) *ReferenceTable {
	t := &ReferenceTable{
		entries: make([]StockEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		e.Symbol = strings.ToUpper(e.Symbol)
		if i, ok := t.index[e.Symbol]; ok {
			t.entries[i].CompanyName = e.CompanyName
			continue
		}
		t.index[e.Symbol] = len(t.entries)
		t.entries = append(t.entries, e)
	}

	return t
}

func (t *ReferenceTable) Lookup(symbol string) (StockEntry, bool) {
	i, ok := t.index[symbol]
	if !ok {
		return StockEntry{}, false
	}
	return t.entries[i], true
}

// All yields the entries in source order without copying the table.
func (t *ReferenceTable) All() iter.Seq[StockEntry] {
	return func(yield func(StockEntry) bool) {
		for _, e := range t.entries {
			if !yield(e) {
				return
			}
		}
	}
}

func (t *ReferenceTable) Len() int {
	return len(t.entries)
}
