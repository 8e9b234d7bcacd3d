package reference

import "errors"

// ErrLoad is returned when the reference table cannot be built. It is fatal at startup.
var ErrLoad = errors.New("error load reference data")
