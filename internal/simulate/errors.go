package simulate

import "errors"

// Sentinel kinds for simulation failures.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrSetup        = errors.New("simulation setup failed")
	ErrVerification = errors.New("verification failed")
)
