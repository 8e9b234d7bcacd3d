package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/stock_log/internal/converter/dbConverter"
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/model/dbModel"
	"github.com/KotFed0t/stock_log/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

// Postgres is the trade journal: a queryable copy of every logged order.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) InsertTrade(ctx context.Context, rec model.TransactionRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO trades (trade_id, name, symbol, side, price, quantity, total_price, dt_create)
		VALUES (:trade_id, :name, :symbol, :side, :price, :quantity, :total_price, :dt_create)`

	slog.Debug("InsertTrade start", slog.String("rqID", rqID), slog.String("tradeID", rec.ID))
	defer func() {
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			slog.Error("InsertTrade failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTrade completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.db.NamedExecContext(ctx, query, dbConverter.ConvertToTrade(rec))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

// GetTrades returns trades created in [from, to), oldest first.
func (r *Postgres) GetTrades(ctx context.Context, from, to time.Time) (trades []model.TransactionRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT trade_id, name, symbol, side, price, quantity, total_price, dt_create
		FROM trades
		WHERE dt_create >= $1 AND dt_create < $2
		ORDER BY dt_create, trade_id`

	slog.Debug("GetTrades start", slog.String("rqID", rqID), slog.Time("from", from), slog.Time("to", to))
	defer func() {
		if err != nil {
			slog.Error("GetTrades failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTrades completed", slog.String("rqID", rqID), slog.Int("trades", len(trades)))
		}
	}()

	var dbTrades []dbModel.Trade
	err = r.db.SelectContext(ctx, &dbTrades, query, from, to)
	if err != nil {
		return nil, err
	}

	trades = make([]model.TransactionRecord, 0, len(dbTrades))
	for _, t := range dbTrades {
		trades = append(trades, dbConverter.ConvertTrade(t))
	}

	return trades, nil
}
