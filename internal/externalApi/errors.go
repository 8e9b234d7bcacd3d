package externalApi

import "errors"

var (
	ErrNotFound    = errors.New("error not found")
	ErrRateLimited = errors.New("error rate limited")
	ErrTransport   = errors.New("error transport")
	ErrNoApiKey    = errors.New("error api key not set")
)
