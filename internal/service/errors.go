package service

import "errors"

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrMissingAPIKey = errors.New("api key is required")
	ErrOutOfCredits  = errors.New("daily credit limit reached")
)
