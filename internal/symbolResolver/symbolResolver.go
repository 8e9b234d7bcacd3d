package symbolResolver

import (
	"strings"

	"github.com/KotFed0t/stock_log/internal/model"
)

type SymbolResolver struct {
	table *model.ReferenceTable
}

func New(table *model.ReferenceTable) *SymbolResolver {
	return &SymbolResolver{table: table}
}

// Resolve finds the stock meant by keyword, case-insensitively.
// An exact symbol match wins; otherwise the first entry in table order whose
// symbol or company name contains keyword is returned.
func (r *SymbolResolver) Resolve(keyword string) (model.StockEntry, bool) {
	if keyword == "" {
		return model.StockEntry{}, false
	}

	keyword = strings.ToUpper(keyword)

	if entry, ok := r.table.Lookup(keyword); ok {
		return entry, true
	}

	for entry := range r.table.All() {
		if strings.Contains(entry.Symbol, keyword) || strings.Contains(strings.ToUpper(entry.CompanyName), keyword) {
			return entry, true
		}
	}

	return model.StockEntry{}, false
}
