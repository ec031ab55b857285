package domain

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignal    = errors.New("invalid signal")
	ErrNotFound         = errors.New("not found")
	ErrVendorExists     = errors.New("vendor fingerprint already registered")
	ErrDuplicateInvoice = errors.New("duplicate invoice")
	ErrRateLimited      = errors.New("rate limited")
)
