package xlsxReference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/reference"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/xuri/excelize/v2"
)

const (
	symbolColumn      = "Symbol"
	companyNameColumn = "Company Name"
)

// Load reads the stock list from the first sheet of the workbook at path.
// The header row must contain "Symbol" and "Company Name" columns.
func Load(ctx context.Context, path string) (*model.ReferenceTable, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "xlsxReference.Load"

	slog.Debug("Load start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path))

	f, err := excelize.OpenFile(path)
	if err != nil {
		slog.Error("can't open reference file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: open %s: %w", reference.ErrLoad, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", reference.ErrLoad, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		slog.Error("can't read reference rows", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: read %s: %w", reference.ErrLoad, path, err)
	}

	entries, err := parseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", reference.ErrLoad, path, err)
	}

	table := model.NewReferenceTable(entries)

	if table.Len() < len(entries) {
		slog.Warn("duplicate symbols in reference file", slog.String("rqID", rqID), slog.String("op", op), slog.Int("duplicates", len(entries)-table.Len()))
	}

	slog.Info("reference data loaded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("stocks", table.Len()))

	return table, nil
}

func parseRows(rows [][]string) ([]model.StockEntry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}

	symbolIdx, nameIdx := -1, -1
	for i, cell := range rows[0] {
		switch strings.TrimSpace(cell) {
		case symbolColumn:
			symbolIdx = i
		case companyNameColumn:
			nameIdx = i
		}
	}

	if symbolIdx < 0 {
		return nil, fmt.Errorf("missing %q column", symbolColumn)
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("missing %q column", companyNameColumn)
	}

	entries := make([]model.StockEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		symbol := strings.TrimSpace(cellAt(row, symbolIdx))
		if symbol == "" {
			continue
		}
		entries = append(entries, model.StockEntry{
			Symbol:      symbol,
			CompanyName: strings.TrimSpace(cellAt(row, nameIdx)),
		})
	}

	return entries, nil
}

// GetRows trims trailing empty cells, so rows may be shorter than the header.
func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
