package dbConverter

import (
	"github.com/KotFed0t/stock_log/internal/model"
	"github.com/KotFed0t/stock_log/internal/model/dbModel"
)

func ConvertTrade(dbTrade dbModel.Trade) model.TransactionRecord {
	return model.TransactionRecord{
		ID:         dbTrade.TradeID,
		Name:       dbTrade.Name,
		Symbol:     dbTrade.Symbol,
		CreatedAt:  dbTrade.CreatedAt,
		Price:      dbTrade.Price,
		Quantity:   dbTrade.Quantity,
		Side:       model.Side(dbTrade.Side),
		TotalPrice: dbTrade.TotalPrice,
	}
}

func ConvertToTrade(rec model.TransactionRecord) dbModel.Trade {
	return dbModel.Trade{
		TradeID:    rec.ID,
		Name:       rec.Name,
		Symbol:     rec.Symbol,
		Side:       string(rec.Side),
		Price:      rec.Price,
		Quantity:   rec.Quantity,
		TotalPrice: rec.TotalPrice,
		CreatedAt:  rec.CreatedAt,
	}
}
