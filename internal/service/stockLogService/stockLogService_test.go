package stockLogService

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/stock_log/config"
	"github.com/KotFed0t/stock_log/data/repository"
	"github.com/KotFed0t/stock_log/internal/externalApi"
	"github.com/KotFed0t/stock_log/internal/ledger"
	"github.com/KotFed0t/stock_log/internal/ledger/xlsxLedger"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/service"
	"github.com/KotFed0t/stock_log/internal/symbolResolver"
	"github.com/shopspring/decimal"
)

var testTable = model.NewReferenceTable([]model.StockEntry{
	{Symbol: "INFY", CompanyName: "Infosys"},
	{Symbol: "TCS", CompanyName: "Tata Consultancy Services"},
})

type fakeQuoteApi struct {
	prices map[string]string
	err    error
	calls  int
}

func (f *fakeQuoteApi) GetGlobalQuote(ctx context.Context, symbol string) (model.Quote, error) {
	f.calls++
	if f.err != nil {
		return model.Quote{}, f.err
	}
	return model.Quote{Price: decimal.RequireFromString(f.prices[symbol])}, nil
}

type fakeLedger struct {
	rows      []model.TransactionRecord
	appendErr error
	files     map[string]string
	opened    []time.Time
}

func (f *fakeLedger) FilePath(date time.Time) string {
	return "/ledgers/stock_log_" + date.Format(time.DateOnly) + ".xlsx"
}

func (f *fakeLedger) Append(ctx context.Context, rec model.TransactionRecord) (model.TransactionRecord, model.LedgerTotals, error) {
	if f.appendErr != nil {
		return model.TransactionRecord{}, model.LedgerTotals{}, f.appendErr
	}
	rec.CreatedAt = time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)
	f.rows = append(f.rows, rec)
	return rec, f.totals(), nil
}

func (f *fakeLedger) totals() model.LedgerTotals {
	totals := model.LedgerTotals{}
	for _, r := range f.rows {
		totals = totals.Add(r)
	}
	return totals
}

func (f *fakeLedger) Read(ctx context.Context, date time.Time) (model.DailyLedger, error) {
	if len(f.rows) == 0 {
		return model.DailyLedger{}, ledger.ErrNotFound
	}
	return model.DailyLedger{Date: date, Rows: f.rows, LedgerTotals: f.totals()}, nil
}

func (f *fakeLedger) Recompute(ctx context.Context, date time.Time) (model.LedgerTotals, error) {
	if len(f.rows) == 0 {
		return model.LedgerTotals{}, ledger.ErrNotFound
	}
	return f.totals(), nil
}

func (f *fakeLedger) Open(ctx context.Context, date time.Time) (io.ReadCloser, error) {
	f.opened = append(f.opened, date)
	content, ok := f.files[date.Format(time.DateOnly)]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type fakeJournal struct {
	inserted []model.TransactionRecord
	err      error
}

func (f *fakeJournal) InsertTrade(ctx context.Context, rec model.TransactionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeJournal) GetTrades(ctx context.Context, from, to time.Time) ([]model.TransactionRecord, error) {
	return f.inserted, f.err
}

type fakeCloudStorage struct {
	uploaded   map[string]string
	uploadErr  error
	cleanups   int
	cleanupErr error
}

func (f *fakeCloudStorage) UploadFile(ctx context.Context, reader io.Reader, filename string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[filename] = buf.String()
	return "https://drive.example/" + filename, nil
}

func (f *fakeCloudStorage) DeleteOldFiles(ctx context.Context) error {
	f.cleanups++
	return f.cleanupErr
}

func loadTestTable(ctx context.Context) (Resolver, error) {
	return symbolResolver.New(testTable), nil
}

func newTestService(q QuoteApi, l Ledger, j Journal, c CloudStorage) *StockLogService {
	s := New(loadTestTable, q, l, j, c)
	s.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSearchPrice(t *testing.T) {
	quotes := &fakeQuoteApi{prices: map[string]string{"INFY": "1500.25"}}
	s := newTestService(quotes, &fakeLedger{}, nil, nil)

	got, err := s.SearchPrice(context.Background(), "infosys")
	if err != nil {
		t.Fatalf("SearchPrice() error = %v", err)
	}
	if got.Symbol != "INFY" || got.CompanyName != "Infosys" {
		t.Errorf("resolved %+v, want INFY Infosys", got.StockEntry)
	}
	if !got.Price.Equal(decimal.RequireFromString("1500.25")) {
		t.Errorf("price = %s, want 1500.25", got.Price)
	}

	// every search goes to the quote api
	if _, err := s.SearchPrice(context.Background(), "INFY"); err != nil {
		t.Fatal(err)
	}
	if quotes.calls != 2 {
		t.Errorf("quote api calls = %d, want 2", quotes.calls)
	}
}

func TestSearchPrice_Errors(t *testing.T) {
	tests := []struct {
		name     string
		keyword  string
		quoteErr error
		wantErr  error
	}{
		{name: "empty keyword", keyword: "", wantErr: service.ErrEmptyKeyword},
		{name: "unknown stock", keyword: "ZZZZ", wantErr: service.ErrStockNotFound},
		{name: "rate limited", keyword: "TCS", quoteErr: externalApi.ErrRateLimited, wantErr: externalApi.ErrRateLimited},
		{name: "transport", keyword: "TCS", quoteErr: externalApi.ErrTransport, wantErr: service.ErrQuoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes := &fakeQuoteApi{err: tt.quoteErr}
			s := newTestService(quotes, &fakeLedger{}, nil, nil)

			_, err := s.SearchPrice(context.Background(), tt.keyword)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SearchPrice() error = %v, want %v", err, tt.wantErr)
			}
			if tt.quoteErr == nil && quotes.calls != 0 {
				t.Errorf("quote api called for unresolved keyword")
			}
		})
	}
}

func TestLogOrder(t *testing.T) {
	l := &fakeLedger{}
	j := &fakeJournal{}
	s := newTestService(&fakeQuoteApi{}, l, j, nil)
	ctx := context.Background()

	rec, totals, err := s.LogOrder(ctx, model.Order{
		Keyword:  "Infosys",
		Side:     model.SideBuy,
		Quantity: 10,
		Price:    decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("LogOrder() error = %v", err)
	}
	if rec.Name != "Infosys (INFY)" {
		t.Errorf("Name = %q, want %q", rec.Name, "Infosys (INFY)")
	}
	if rec.ID == "" {
		t.Error("record has no id")
	}
	if !rec.TotalPrice.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("TotalPrice = %s, want 1000", rec.TotalPrice)
	}
	if !totals.TotalBuy.Equal(decimal.NewFromInt(1000)) || !totals.TotalSell.IsZero() {
		t.Errorf("totals = %+v, want buy 1000 sell 0", totals)
	}

	_, totals, err = s.LogOrder(ctx, model.Order{
		Keyword:  "TCS",
		Side:     model.SideSell,
		Quantity: 5,
		Price:    decimal.RequireFromString("110"),
	})
	if err != nil {
		t.Fatalf("LogOrder() error = %v", err)
	}
	if !totals.TotalBuy.Equal(decimal.NewFromInt(1000)) || !totals.TotalSell.Equal(decimal.NewFromInt(550)) {
		t.Errorf("totals = %+v, want buy 1000 sell 550", totals)
	}

	if len(j.inserted) != 2 {
		t.Fatalf("journaled %d trades, want 2", len(j.inserted))
	}
	if j.inserted[0].CreatedAt.IsZero() {
		t.Error("journaled trade has no timestamp")
	}
}

func TestLogOrder_Rejected(t *testing.T) {
	valid := model.Order{Keyword: "INFY", Side: model.SideBuy, Quantity: 1, Price: decimal.NewFromInt(10)}

	tests := []struct {
		name    string
		modify  func(o *model.Order)
		wantErr error
	}{
		{name: "zero quantity", modify: func(o *model.Order) { o.Quantity = 0 }, wantErr: service.ErrInvalidOrder},
		{name: "zero price", modify: func(o *model.Order) { o.Price = decimal.Zero }, wantErr: service.ErrInvalidOrder},
		{name: "unknown side", modify: func(o *model.Order) { o.Side = "Hold" }, wantErr: service.ErrInvalidOrder},
		{name: "unknown stock", modify: func(o *model.Order) { o.Keyword = "ZZZZ" }, wantErr: service.ErrStockNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLedger{}
			s := newTestService(&fakeQuoteApi{}, l, nil, nil)

			order := valid
			tt.modify(&order)
			_, _, err := s.LogOrder(context.Background(), order)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LogOrder() error = %v, want %v", err, tt.wantErr)
			}
			if len(l.rows) != 0 {
				t.Error("rejected order reached the ledger")
			}
		})
	}
}

func TestLogOrder_PriceRoundTripsThroughLedger(t *testing.T) {
	xl := xlsxLedger.New(&config.Config{Ledger: config.Ledger{Dir: t.TempDir()}})
	s := newTestService(&fakeQuoteApi{}, xl, nil, nil)
	ctx := context.Background()

	rec, totals, err := s.LogOrder(ctx, model.Order{
		Keyword:  "INFY",
		Side:     model.SideBuy,
		Quantity: 3,
		Price:    decimal.RequireFromString("123.12345678901234567"),
	})
	if err != nil {
		t.Fatalf("LogOrder() error = %v", err)
	}

	if !rec.Price.Equal(decimal.RequireFromString("123.1235")) {
		t.Errorf("Price = %s, want 123.1235", rec.Price)
	}
	if !rec.TotalPrice.Equal(decimal.RequireFromString("369.3705")) {
		t.Errorf("TotalPrice = %s, want 369.3705", rec.TotalPrice)
	}
	if !totals.TotalBuy.Equal(rec.TotalPrice) {
		t.Errorf("TotalBuy = %s, want the record total %s", totals.TotalBuy, rec.TotalPrice)
	}

	dl, err := s.GetLedger(ctx, rec.CreatedAt)
	if err != nil {
		t.Fatalf("GetLedger() error = %v", err)
	}
	if len(dl.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(dl.Rows))
	}
	if got := dl.Rows[0]; !got.Price.Equal(rec.Price) || !got.TotalPrice.Equal(rec.TotalPrice) {
		t.Errorf("read back price %s total %s, want %s %s", got.Price, got.TotalPrice, rec.Price, rec.TotalPrice)
	}
	if !dl.TotalBuy.Equal(rec.TotalPrice) {
		t.Errorf("stored TotalBuy = %s, want %s", dl.TotalBuy, rec.TotalPrice)
	}
}

func TestLogOrder_PriceRoundedToZero(t *testing.T) {
	l := &fakeLedger{}
	s := newTestService(&fakeQuoteApi{}, l, nil, nil)

	_, _, err := s.LogOrder(context.Background(), model.Order{Keyword: "INFY", Side: model.SideBuy, Quantity: 1, Price: decimal.RequireFromString("0.00004")})
	if !errors.Is(err, service.ErrInvalidOrder) {
		t.Errorf("error = %v, want ErrInvalidOrder", err)
	}
	if len(l.rows) != 0 {
		t.Error("order reached the ledger")
	}
}

func TestLogOrder_LedgerFailure(t *testing.T) {
	j := &fakeJournal{}
	s := newTestService(&fakeQuoteApi{}, &fakeLedger{appendErr: ledger.ErrWrite}, j, nil)

	_, _, err := s.LogOrder(context.Background(), model.Order{Keyword: "INFY", Side: model.SideBuy, Quantity: 1, Price: decimal.NewFromInt(10)})
	if !errors.Is(err, service.ErrOrderNotLogged) {
		t.Errorf("error = %v, want ErrOrderNotLogged", err)
	}
	if !errors.Is(err, ledger.ErrWrite) {
		t.Errorf("error = %v, want cause ledger.ErrWrite", err)
	}
	if len(j.inserted) != 0 {
		t.Error("order journaled although the ledger write failed")
	}
}

func TestLogOrder_JournalFailureIsNotFatal(t *testing.T) {
	for _, journalErr := range []error{errors.New("connection refused"), repository.ErrAlreadyExists} {
		l := &fakeLedger{}
		s := newTestService(&fakeQuoteApi{}, l, &fakeJournal{err: journalErr}, nil)

		_, _, err := s.LogOrder(context.Background(), model.Order{Keyword: "INFY", Side: model.SideBuy, Quantity: 1, Price: decimal.NewFromInt(10)})
		if err != nil {
			t.Errorf("journal error %v failed the order: %v", journalErr, err)
		}
		if len(l.rows) != 1 {
			t.Errorf("ledger rows = %d, want 1", len(l.rows))
		}
	}
}

func TestReferenceLoadedOnDemand(t *testing.T) {
	loadErr := errors.New("data.xlsx: no such file")
	loads := 0
	failing := func(ctx context.Context) (Resolver, error) {
		loads++
		return nil, loadErr
	}
	l := &fakeLedger{rows: []model.TransactionRecord{{Side: model.SideBuy, TotalPrice: decimal.NewFromInt(10)}}}
	s := New(failing, &fakeQuoteApi{}, l, &fakeJournal{}, nil)
	ctx := context.Background()

	if _, err := s.GetLedger(ctx, time.Now()); err != nil {
		t.Errorf("GetLedger() error = %v", err)
	}
	if _, err := s.RecomputeLedger(ctx, time.Now()); err != nil {
		t.Errorf("RecomputeLedger() error = %v", err)
	}
	if _, err := s.GetTradeHistory(ctx, time.Now(), time.Now().Add(time.Hour)); err != nil {
		t.Errorf("GetTradeHistory() error = %v", err)
	}
	if loads != 0 {
		t.Fatalf("reference loaded %d times by ledger operations", loads)
	}

	_, err := s.SearchPrice(ctx, "INFY")
	if !errors.Is(err, service.ErrReferenceUnavailable) || !errors.Is(err, loadErr) {
		t.Errorf("SearchPrice() error = %v, want ErrReferenceUnavailable wrapping the load error", err)
	}
	if err := s.LoadReference(ctx); !errors.Is(err, service.ErrReferenceUnavailable) {
		t.Errorf("LoadReference() error = %v", err)
	}
	if loads != 2 {
		t.Errorf("loads = %d, want a retry after a failed load", loads)
	}
}

func TestReferenceLoadedOnce(t *testing.T) {
	loads := 0
	counting := func(ctx context.Context) (Resolver, error) {
		loads++
		return symbolResolver.New(testTable), nil
	}
	s := New(counting, &fakeQuoteApi{prices: map[string]string{"INFY": "1500", "TCS": "3900"}}, &fakeLedger{}, nil, nil)
	ctx := context.Background()

	if err := s.LoadReference(ctx); err != nil {
		t.Fatal(err)
	}
	for _, keyword := range []string{"infosys", "TCS"} {
		if _, err := s.SearchPrice(ctx, keyword); err != nil {
			t.Fatalf("SearchPrice(%q) error = %v", keyword, err)
		}
	}
	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
}

func TestGetTodayLedger(t *testing.T) {
	l := &fakeLedger{}
	s := newTestService(&fakeQuoteApi{}, l, nil, nil)
	ctx := context.Background()

	if _, err := s.GetTodayLedger(ctx); !errors.Is(err, service.ErrLedgerNotFound) {
		t.Errorf("empty ledger error = %v, want ErrLedgerNotFound", err)
	}
	if _, err := s.RecomputeLedger(ctx, s.now()); !errors.Is(err, service.ErrLedgerNotFound) {
		t.Errorf("recompute error = %v, want ErrLedgerNotFound", err)
	}

	if _, _, err := s.LogOrder(ctx, model.Order{Keyword: "TCS", Side: model.SideSell, Quantity: 2, Price: decimal.NewFromInt(50)}); err != nil {
		t.Fatal(err)
	}

	dl, err := s.GetTodayLedger(ctx)
	if err != nil {
		t.Fatalf("GetTodayLedger() error = %v", err)
	}
	if len(dl.Rows) != 1 || !dl.TotalSell.Equal(decimal.NewFromInt(100)) {
		t.Errorf("ledger = %+v, want one sell row totalling 100", dl)
	}
}

func TestGetTradeHistory(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	s := newTestService(&fakeQuoteApi{}, &fakeLedger{}, nil, nil)
	if _, err := s.GetTradeHistory(context.Background(), from, to); !errors.Is(err, service.ErrJournalDisabled) {
		t.Errorf("error = %v, want ErrJournalDisabled", err)
	}

	j := &fakeJournal{inserted: []model.TransactionRecord{{ID: "1"}, {ID: "2"}}}
	s = newTestService(&fakeQuoteApi{}, &fakeLedger{}, j, nil)

	trades, err := s.GetTradeHistory(context.Background(), from, to)
	if err != nil {
		t.Fatalf("GetTradeHistory() error = %v", err)
	}
	if len(trades) != 2 {
		t.Errorf("trades = %d, want 2", len(trades))
	}

	if _, err := s.GetTradeHistory(context.Background(), to, from); err == nil {
		t.Error("reversed period accepted")
	}
}

func TestBackupLedger(t *testing.T) {
	l := &fakeLedger{files: map[string]string{"2024-05-09": "xlsx bytes"}}
	storage := &fakeCloudStorage{}
	s := newTestService(&fakeQuoteApi{}, l, nil, storage)

	if err := s.BackupLedger(context.Background()); err != nil {
		t.Fatalf("BackupLedger() error = %v", err)
	}
	if got := storage.uploaded["stock_log_2024-05-09.xlsx"]; got != "xlsx bytes" {
		t.Errorf("uploaded content = %q, want %q", got, "xlsx bytes")
	}
	if storage.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", storage.cleanups)
	}
}

func TestBackupLedger_NoLedgerYesterday(t *testing.T) {
	storage := &fakeCloudStorage{}
	s := newTestService(&fakeQuoteApi{}, &fakeLedger{}, nil, storage)

	if err := s.BackupLedger(context.Background()); err != nil {
		t.Fatalf("BackupLedger() error = %v", err)
	}
	if len(storage.uploaded) != 0 {
		t.Errorf("uploaded %v, want nothing", storage.uploaded)
	}
	if storage.cleanups != 1 {
		t.Errorf("cleanups = %d, want 1", storage.cleanups)
	}
}

func TestBackupLedger_Errors(t *testing.T) {
	s := newTestService(&fakeQuoteApi{}, &fakeLedger{}, nil, nil)
	if err := s.BackupLedger(context.Background()); !errors.Is(err, service.ErrBackupDisabled) {
		t.Errorf("error = %v, want ErrBackupDisabled", err)
	}

	uploadErr := errors.New("quota exceeded")
	storage := &fakeCloudStorage{uploadErr: uploadErr}
	l := &fakeLedger{files: map[string]string{"2024-05-09": "xlsx bytes"}}
	s = newTestService(&fakeQuoteApi{}, l, nil, storage)

	err := s.BackupLedger(context.Background())
	if !errors.Is(err, uploadErr) {
		t.Errorf("error = %v, want %v", err, uploadErr)
	}
	if storage.cleanups != 1 {
		t.Error("old backups not cleaned up after a failed upload")
	}
}
