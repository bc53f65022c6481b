package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidLimit        = errors.New("invalid limit")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownTeam         = errors.New("unknown team")
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInvalidEvent        = errors.New("invalid event")
)
