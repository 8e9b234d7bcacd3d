package xlsxLedger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KotFed0t/stock_log/config"
	"github.com/KotFed0t/stock_log/internal/ledger"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	fileNamePrefix  = "stock_log_"
	fileExtension   = ".xlsx"
	fileDateLayout  = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"

	totalBuyLabel  = "Total Buy"
	totalSellLabel = "Total Sell"
	totalBuyCell   = "H2"
	totalSellCell  = "I2"
)

var header = []string{"Name", "Date and Time", "Price", "Quantity", "Order Type", "Total Price"}

// replaced in tests to simulate a failed write
var renameFile = os.Rename

// XLSXLedger keeps one workbook per calendar day. It assumes a single writer.
type XLSXLedger struct {
	dir string
	now func() time.Time
}

func New(cfg *config.Config) *XLSXLedger {
	return &XLSXLedger{dir: cfg.Ledger.Dir, now: time.Now}
}

func (l *XLSXLedger) FilePath(date time.Time) string {
	return filepath.Join(l.dir, fileNamePrefix+date.Format(fileDateLayout)+fileExtension)
}

// Append adds rec to today's ledger, stamping it with the current time, and
// recomputes the day's buy and sell totals over all rows. Either the whole
// update lands on disk or the previous file is left untouched.
func (l *XLSXLedger) Append(ctx context.Context, rec model.TransactionRecord) (model.TransactionRecord, model.LedgerTotals, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXLedger.Append"

	now := l.now()
	path := l.FilePath(now)

	slog.Debug("Append start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path), slog.String("name", rec.Name))

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		slog.Error("can't create ledger dir", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TransactionRecord{}, model.LedgerTotals{}, fmt.Errorf("%w: create dir: %w", ledger.ErrWrite, err)
	}

	f, sheet, err := l.openOrCreate(path)
	if err != nil {
		slog.Error("can't open ledger", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TransactionRecord{}, model.LedgerTotals{}, err
	}
	defer closeFile(rqID, op, f)

	rows, err := readRows(f, sheet)
	if err != nil {
		return model.TransactionRecord{}, model.LedgerTotals{}, err
	}

	if len(rows) == 0 || isBlank(ledgerCells(rows[0])) {
		// header lost, e.g. the sheet was cleared by hand
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return model.TransactionRecord{}, model.LedgerTotals{}, fmt.Errorf("%w: write header: %w", ledger.ErrWrite, err)
		}
	}

	rec.CreatedAt = now.Truncate(time.Second)
	if err := writeRecord(f, sheet, lastDataRow(rows)+1, rec); err != nil {
		slog.Error("can't write ledger row", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TransactionRecord{}, model.LedgerTotals{}, fmt.Errorf("%w: %w", ledger.ErrWrite, err)
	}

	totals, err := updateTotals(f, sheet)
	if err != nil {
		slog.Error("can't update ledger totals", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TransactionRecord{}, model.LedgerTotals{}, err
	}

	if err := saveAtomically(f, path); err != nil {
		slog.Error("can't save ledger", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TransactionRecord{}, model.LedgerTotals{}, fmt.Errorf("%w: %w", ledger.ErrWrite, err)
	}

	slog.Debug("Append completed", slog.String("rqID", rqID), slog.String("op", op),
		slog.String("totalBuy", totals.TotalBuy.String()), slog.String("totalSell", totals.TotalSell.String()))

	return rec, totals, nil
}

// Read returns the rows and totals of the ledger for date. Blank rows and
// cells outside the ledger columns are ignored.
func (l *XLSXLedger) Read(ctx context.Context, date time.Time) (model.DailyLedger, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXLedger.Read"

	path := l.FilePath(date)

	f, sheet, err := openExisting(path)
	if err != nil {
		return model.DailyLedger{}, err
	}
	defer closeFile(rqID, op, f)

	rows, err := readRows(f, sheet)
	if err != nil {
		return model.DailyLedger{}, err
	}

	daily := model.DailyLedger{Date: date}
	for i := 1; i < len(rows); i++ {
		cells := ledgerCells(rows[i])
		if isBlank(cells) {
			continue
		}

		rec, err := parseRecord(cells)
		if err != nil {
			slog.Error("malformed ledger row", slog.String("rqID", rqID), slog.String("op", op), slog.Int("row", i+1), slog.String("err", err.Error()))
			return model.DailyLedger{}, fmt.Errorf("%w: row %d: %w", ledger.ErrMalformed, i+1, err)
		}

		daily.Rows = append(daily.Rows, rec)
		daily.LedgerTotals = daily.LedgerTotals.Add(rec)
	}

	slog.Debug("Read completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path), slog.Int("rows", len(daily.Rows)))

	return daily, nil
}

// Recompute rewrites the totals of the ledger for date from its rows.
func (l *XLSXLedger) Recompute(ctx context.Context, date time.Time) (model.LedgerTotals, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXLedger.Recompute"

	path := l.FilePath(date)

	f, sheet, err := openExisting(path)
	if err != nil {
		return model.LedgerTotals{}, err
	}
	defer closeFile(rqID, op, f)

	totals, err := updateTotals(f, sheet)
	if err != nil {
		return model.LedgerTotals{}, err
	}

	if err := saveAtomically(f, path); err != nil {
		slog.Error("can't save ledger", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.LedgerTotals{}, fmt.Errorf("%w: %w", ledger.ErrWrite, err)
	}

	return totals, nil
}

// Open returns the raw ledger file for date. The caller closes it.
func (l *XLSXLedger) Open(ctx context.Context, date time.Time) (io.ReadCloser, error) {
	file, err := os.Open(l.FilePath(date))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

func (l *XLSXLedger) openOrCreate(path string) (*excelize.File, string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return newLedgerFile()
	}
	return openExisting(path)
}

func openExisting(path string) (*excelize.File, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ledger.ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: open %s: %w", ledger.ErrMalformed, path, err)
	}
	return f, f.GetSheetName(f.GetActiveSheetIndex()), nil
}

func newLedgerFile() (*excelize.File, string, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("%w: write header: %w", ledger.ErrWrite, err)
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("%w: header style: %w", ledger.ErrWrite, err)
	}

	_ = f.SetCellStyle(sheet, "A1", "F1", styleID)
	_ = f.SetCellStyle(sheet, "H1", "I1", styleID)
	_ = f.SetColWidth(sheet, "A", "A", 40)
	_ = f.SetColWidth(sheet, "B", "B", 20)

	return f, sheet, nil
}

func readRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %w", ledger.ErrMalformed, err)
	}

	if len(rows) == 0 || isBlank(ledgerCells(rows[0])) {
		return rows, nil
	}

	got := ledgerCells(rows[0])
	for i, want := range header {
		if strings.TrimSpace(got[i]) != want {
			return nil, fmt.Errorf("%w: header column %d is %q, want %q", ledger.ErrMalformed, i+1, got[i], want)
		}
	}

	return rows, nil
}

// ledgerCells returns exactly the A:F cells of row.
func ledgerCells(row []string) []string {
	cells := make([]string, len(header))
	copy(cells, row)
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// lastDataRow returns the 1-based number of the last non-blank ledger row, the header row at least.
func lastDataRow(rows [][]string) int {
	for i := len(rows) - 1; i >= 1; i-- {
		if !isBlank(ledgerCells(rows[i])) {
			return i + 1
		}
	}
	return 1
}

func writeRecord(f *excelize.File, sheet string, rowNum int, rec model.TransactionRecord) error {
	row := []any{
		rec.Name,
		rec.CreatedAt.Format(timestampLayout),
		rec.Price.InexactFloat64(),
		rec.Quantity,
		string(rec.Side),
		rec.TotalPrice.InexactFloat64(),
	}
	return f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &row)
}

func updateTotals(f *excelize.File, sheet string) (model.LedgerTotals, error) {
	rows, err := readRows(f, sheet)
	if err != nil {
		return model.LedgerTotals{}, err
	}

	totals, err := computeTotals(rows)
	if err != nil {
		return model.LedgerTotals{}, err
	}

	_ = f.SetCellStr(sheet, "H1", totalBuyLabel)
	_ = f.SetCellStr(sheet, "I1", totalSellLabel)
	if err := f.SetCellFloat(sheet, totalBuyCell, totals.TotalBuy.InexactFloat64(), -1, 64); err != nil {
		return model.LedgerTotals{}, fmt.Errorf("%w: %w", ledger.ErrWrite, err)
	}
	if err := f.SetCellFloat(sheet, totalSellCell, totals.TotalSell.InexactFloat64(), -1, 64); err != nil {
		return model.LedgerTotals{}, fmt.Errorf("%w: %w", ledger.ErrWrite, err)
	}

	return totals, nil
}

// computeTotals sums the Total Price column over every Buy and Sell row.
// Rows with another order type are not counted.
func computeTotals(rows [][]string) (model.LedgerTotals, error) {
	totals := model.LedgerTotals{}
	for i := 1; i < len(rows); i++ {
		cells := ledgerCells(rows[i])
		side := model.Side(strings.TrimSpace(cells[4]))
		if side != model.SideBuy && side != model.SideSell {
			continue
		}

		total, err := decimal.NewFromString(strings.TrimSpace(cells[5]))
		if err != nil {
			return model.LedgerTotals{}, fmt.Errorf("%w: row %d: total price %q", ledger.ErrMalformed, i+1, cells[5])
		}

		totals = totals.Add(model.TransactionRecord{Side: side, TotalPrice: total})
	}
	return totals, nil
}

func parseRecord(cells []string) (model.TransactionRecord, error) {
	createdAt, err := parseTimestamp(strings.TrimSpace(cells[1]))
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("date and time %q: %w", cells[1], err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(cells[2]))
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("price %q: %w", cells[2], err)
	}

	quantity, err := decimal.NewFromString(strings.TrimSpace(cells[3]))
	if err != nil || !quantity.IsInteger() {
		return model.TransactionRecord{}, fmt.Errorf("quantity %q is not an integer", cells[3])
	}

	total, err := decimal.NewFromString(strings.TrimSpace(cells[5]))
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("total price %q: %w", cells[5], err)
	}

	return model.TransactionRecord{
		Name:       cells[0],
		Symbol:     model.SymbolFromDisplayName(cells[0]),
		CreatedAt:  createdAt,
		Price:      price,
		Quantity:   int(quantity.IntPart()),
		Side:       model.Side(strings.TrimSpace(cells[4])),
		TotalPrice: total,
	}, nil
}

// parseTimestamp accepts the text timestamps written by Append and the
// serial date numbers a spreadsheet editor stores when the cell is retyped.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, time.Local)
	if err == nil {
		return t, nil
	}

	serial, serr := decimal.NewFromString(s)
	if serr != nil {
		return time.Time{}, err
	}

	t, serr = excelize.ExcelDateToTime(serial.InexactFloat64(), false)
	if serr != nil {
		return time.Time{}, serr
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}

func saveAtomically(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := renameFile(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func closeFile(rqID, op string, f *excelize.File) {
	if err := f.Close(); err != nil {
		slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
}
