package settlement

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrStopped        = errors.New("settlement scheduler stopped")
	ErrAlreadyRunning = errors.New("settlement scheduler already running")
)
