package app

import "errors"

// ErrNotAuthenticated and related errors describe session and input failures.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrInvalidDays      = errors.New("invalid day count")
	ErrEmptyPatch       = errors.New("patch changes nothing")
)
