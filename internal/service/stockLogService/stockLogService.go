package stockLogService

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/KotFed0t/stock_log/data/repository"
	"github.com/KotFed0t/stock_log/internal/ledger"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/service"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Resolver interface {
	Resolve(keyword string) (model.StockEntry, bool)
}

// ResolverLoader builds the Resolver. It runs on the first operation that
// resolves a stock, so ledger-only use never reads the reference data.
type ResolverLoader func(ctx context.Context) (Resolver, error)

type QuoteApi interface {
	GetGlobalQuote(ctx context.Context, symbol string) (model.Quote, error)
}

type Ledger interface {
	FilePath(date time.Time) string
	Append(ctx context.Context, rec model.TransactionRecord) (model.TransactionRecord, model.LedgerTotals, error)
	Read(ctx context.Context, date time.Time) (model.DailyLedger, error)
	Recompute(ctx context.Context, date time.Time) (model.LedgerTotals, error)
	Open(ctx context.Context, date time.Time) (io.ReadCloser, error)
}

type Journal interface {
	InsertTrade(ctx context.Context, rec model.TransactionRecord) error
	GetTrades(ctx context.Context, from, to time.Time) ([]model.TransactionRecord, error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (viewLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type StockLogService struct {
	loadResolver ResolverLoader
	resolverMu   sync.Mutex
	resolver     Resolver
	quoteApi     QuoteApi
	ledger       Ledger
	journal      Journal
	cloudStorage CloudStorage
	now          func() time.Time
}

// New wires the service. journal and cloudStorage may be nil when the
// corresponding feature is disabled.
func New(loadResolver ResolverLoader, quoteApi QuoteApi, ledger Ledger, journal Journal, cloudStorage CloudStorage) *StockLogService {
	return &StockLogService{
		loadResolver: loadResolver,
		quoteApi:     quoteApi,
		ledger:       ledger,
		journal:      journal,
		cloudStorage: cloudStorage,
		now:          time.Now,
	}
}

// LoadReference makes sure the reference data is loaded. A failed load is
// retried by the next call.
func (s *StockLogService) LoadReference(ctx context.Context) error {
	_, err := s.getResolver(ctx)
	return err
}

func (s *StockLogService) getResolver(ctx context.Context) (Resolver, error) {
	s.resolverMu.Lock()
	defer s.resolverMu.Unlock()

	if s.resolver != nil {
		return s.resolver, nil
	}

	resolver, err := s.loadResolver(ctx)
	if err != nil {
		slog.Error(
			"reference data not loaded",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("op", "StockLogService.getResolver"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", service.ErrReferenceUnavailable, err)
	}

	s.resolver = resolver
	return resolver, nil
}

func (s *StockLogService) ResolveStock(ctx context.Context, keyword string) (model.StockEntry, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.ResolveStock"

	if keyword == "" {
		return model.StockEntry{}, service.ErrEmptyKeyword
	}

	resolver, err := s.getResolver(ctx)
	if err != nil {
		return model.StockEntry{}, err
	}

	stock, ok := resolver.Resolve(keyword)
	if !ok {
		slog.Info("stock not resolved", slog.String("rqID", rqID), slog.String("op", op), slog.String("keyword", keyword))
		return model.StockEntry{}, service.ErrStockNotFound
	}

	return stock, nil
}

// SearchPrice resolves keyword and fetches a fresh quote for it.
func (s *StockLogService) SearchPrice(ctx context.Context, keyword string) (model.StockQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.SearchPrice"

	slog.Debug("SearchPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("keyword", keyword))
	defer func() {
		slog.Debug("SearchPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("keyword", keyword))
	}()

	stock, err := s.ResolveStock(ctx, keyword)
	if err != nil {
		return model.StockQuote{}, err
	}

	quote, err := s.quoteApi.GetGlobalQuote(ctx, stock.Symbol)
	if err != nil {
		slog.Error("got error from quoteApi.GetGlobalQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", stock.Symbol), slog.String("err", err.Error()))
		return model.StockQuote{}, fmt.Errorf("%w: %w", service.ErrQuoteUnavailable, err)
	}

	return model.StockQuote{StockEntry: stock, Quote: quote}, nil
}

// LogOrder appends the order to today's ledger and returns the stored record
// together with the ledger totals after the append. The price is rounded to
// model.PriceScale places first.
func (s *StockLogService) LogOrder(ctx context.Context, order model.Order) (model.TransactionRecord, model.LedgerTotals, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.LogOrder"

	slog.Debug("LogOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("keyword", order.Keyword), slog.String("side", string(order.Side)))
	defer func() {
		slog.Debug("LogOrder finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	order.Price = order.Price.Round(model.PriceScale)

	if err := order.Validate(); err != nil {
		return model.TransactionRecord{}, model.LedgerTotals{}, fmt.Errorf("%w: %w", service.ErrInvalidOrder, err)
	}

	stock, err := s.ResolveStock(ctx, order.Keyword)
	if err != nil {
		return model.TransactionRecord{}, model.LedgerTotals{}, err
	}

	rec := model.TransactionRecord{
		ID:         uuid.NewString(),
		Name:       stock.DisplayName(),
		Symbol:     stock.Symbol,
		Price:      order.Price,
		Quantity:   order.Quantity,
		Side:       order.Side,
		TotalPrice: order.Price.Mul(decimal.NewFromInt(int64(order.Quantity))),
	}

	rec, totals, err := s.ledger.Append(ctx, rec)
	if err != nil {
		slog.Error("got error from ledger.Append", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TransactionRecord{}, model.LedgerTotals{}, fmt.Errorf("%w: %w", service.ErrOrderNotLogged, err)
	}

	slog.Info(
		"order logged",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("tradeID", rec.ID),
		slog.String("symbol", rec.Symbol),
		slog.String("side", string(rec.Side)),
		slog.String("total", rec.TotalPrice.String()),
	)

	s.saveToJournal(ctx, rec)

	return rec, totals, nil
}

// saveToJournal mirrors rec into the trade journal. The ledger file stays the
// source of truth, so failures are only logged.
func (s *StockLogService) saveToJournal(ctx context.Context, rec model.TransactionRecord) {
	if s.journal == nil {
		return
	}

	err := s.journal.InsertTrade(ctx, rec)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		slog.Warn(
			"trade not saved to journal",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("op", "StockLogService.saveToJournal"),
			slog.String("tradeID", rec.ID),
			slog.String("err", err.Error()),
		)
	}
}

func (s *StockLogService) GetLedger(ctx context.Context, date time.Time) (model.DailyLedger, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.GetLedger"

	dl, err := s.ledger.Read(ctx, date)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return model.DailyLedger{}, service.ErrLedgerNotFound
		}
		slog.Error("got error from ledger.Read", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.DailyLedger{}, err
	}

	return dl, nil
}

func (s *StockLogService) GetTodayLedger(ctx context.Context) (model.DailyLedger, error) {
	return s.GetLedger(ctx, s.now())
}

// RecomputeLedger rewrites the totals cells of the ledger for date from its rows.
func (s *StockLogService) RecomputeLedger(ctx context.Context, date time.Time) (model.LedgerTotals, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.RecomputeLedger"

	totals, err := s.ledger.Recompute(ctx, date)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return model.LedgerTotals{}, service.ErrLedgerNotFound
		}
		slog.Error("got error from ledger.Recompute", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.LedgerTotals{}, err
	}

	return totals, nil
}

// GetTradeHistory returns journaled trades created in [from, to).
func (s *StockLogService) GetTradeHistory(ctx context.Context, from, to time.Time) ([]model.TransactionRecord, error) {
	if s.journal == nil {
		return nil, service.ErrJournalDisabled
	}
	if !to.After(from) {
		return nil, fmt.Errorf("empty period %s - %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	trades, err := s.journal.GetTrades(ctx, from, to)
	if err != nil {
		slog.Error(
			"got error from journal.GetTrades",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("op", "StockLogService.GetTradeHistory"),
			slog.String("err", err.Error()),
		)
		return nil, err
	}

	return trades, nil
}

// BackupLedger uploads yesterday's ledger, if there is one, and then expires
// old backups.
func (s *StockLogService) BackupLedger(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.BackupLedger"

	if s.cloudStorage == nil {
		return service.ErrBackupDisabled
	}

	day := s.now().AddDate(0, 0, -1)

	uploadErr := s.uploadLedger(ctx, day)
	if uploadErr != nil {
		slog.Error("ledger upload failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", uploadErr.Error()))
	}

	cleanupErr := s.cloudStorage.DeleteOldFiles(ctx)
	if cleanupErr != nil {
		slog.Error("got error from cloudStorage.DeleteOldFiles", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cleanupErr.Error()))
	}

	return errors.Join(uploadErr, cleanupErr)
}

func (s *StockLogService) uploadLedger(ctx context.Context, day time.Time) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "StockLogService.uploadLedger"

	file, err := s.ledger.Open(ctx, day)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			slog.Info("no ledger to back up", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", day.Format(time.DateOnly)))
			return nil
		}
		return err
	}
	defer file.Close()

	filename := filepath.Base(s.ledger.FilePath(day))
	link, err := s.cloudStorage.UploadFile(ctx, file, filename)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}

	slog.Info("ledger backed up", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename), slog.String("link", link))
	return nil
}
