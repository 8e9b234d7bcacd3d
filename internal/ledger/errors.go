package ledger

import "errors"

var (
	ErrNotFound  = errors.New("error ledger not found")
	ErrMalformed = errors.New("error ledger malformed")
	ErrWrite     = errors.New("error ledger write")
)
