package service

import "errors"

var (
	ErrEmptyKeyword     = errors.New("error empty keyword")
	ErrInvalidOrder     = errors.New("error invalid order")
	ErrStockNotFound    = errors.New("error stock not found")
	ErrQuoteUnavailable = errors.New("error quote unavailable")
	ErrOrderNotLogged   = errors.New("error order not logged")
	ErrLedgerNotFound   = errors.New("error ledger not found")
	ErrJournalDisabled  = errors.New("error trade journal disabled")
	ErrBackupDisabled   = errors.New("error ledger backup disabled")

	ErrReferenceUnavailable = errors.New("error reference data unavailable")
)
