package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/teamclash/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the global logger, teeing to logFile when set.
// The returned close function releases the file.
func SetupLogging(format, logFile string) (func() error, error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return closeFn, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}

	if err := logger.InitWithFormat(format, w); err != nil {
		_ = closeFn()
		return func() error { return nil }, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`teamclash simulator
===================

Runs one short team competition against a live service: registers and funds
users, creates an event with hints, checks what each team sees, triggers
settlement and verifies the winner, the frozen snapshot and the payouts.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -teams string
        Comma separated teams (default: read from /stats)
  -users int
        Users per team (default 20)
  -max-currency int
        Upper bound for a random balance (default 1000)
  -reward int
        Per-user reward; negative uses the server default (default -1)
  -duration duration
        Event duration (default 3s)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Also write logs to this file
  -format string
        Log format, text or json (default "text")
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -users 100 -duration 5s
  go run ./cmd/simulate -teams red,blue,green -reward 50 -url http://localhost:8080
`)
}
