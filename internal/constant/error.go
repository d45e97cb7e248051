package constant

import "github.com/pkg/errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("track is already queued")
	ErrQueueFull           = errors.New("queue is full")
	ErrInsufficientFunds   = errors.New("insufficient points")
	ErrLedger              = errors.New("ledger request failed")
	ErrLedgerAmbiguous     = errors.New("ledger outcome unknown")
	ErrStore               = errors.New("queue store transaction failed")
	ErrCompensation        = errors.New("refund could not be issued")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRateLimited         = errors.New("rate limited")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
)
