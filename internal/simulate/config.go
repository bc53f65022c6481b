package simulate

import "time"

// Config holds configuration for a simulated classroom event.
type Config struct {
	BaseURL       string        // Base URL of the service
	Teams         []string      // Teams to register users on; empty means the server's teams
	UsersPerTeam  int           // Users registered per team
	MaxCurrency   int64         // Upper bound for a user's random balance
	RewardAmount  int64         // Per-user reward; negative means the server default
	EventDuration time.Duration // How long the simulated event runs
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	Verbose       bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	UsersRegistered   int
	UsersFailed       int
	Adjustments       int
	AdjustmentsFailed int
	StatusChecks      int
	EventID           string
	Winner            string
	RewardedUsers     int64
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// plannedUser is a user the run registers and funds.
type plannedUser struct {
	ID       string
	Team     string
	Currency int64
}
