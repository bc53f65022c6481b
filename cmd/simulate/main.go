package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/teamclash/internal/simulate"
	"github.com/okian/teamclash/pkg/logger"
)

// Default configuration constants.
const (
	defaultUsersPerTeam = 20
	defaultMaxCurrency  = 1000
	defaultDuration     = 3 * time.Second
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 10 * time.Second
	defaultRunTimeout   = 5 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teams       = flag.String("teams", "", "Comma separated teams (default: read from /stats)")
		users       = flag.Int("users", defaultUsersPerTeam, "Users per team")
		maxCurrency = flag.Int64("max-currency", defaultMaxCurrency, "Upper bound for a random balance")
		reward      = flag.Int64("reward", -1, "Per-user reward; negative uses the server default")
		duration    = flag.Duration("duration", defaultDuration, "Event duration")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile     = flag.String("log", "", "Also write logs to this file")
		format      = flag.String("format", logger.FormatText, "Log format, text or json")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closeLog, err := simulate.SetupLogging(*format, *logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:       strings.TrimRight(*baseURL, "/"),
		UsersPerTeam:  *users,
		MaxCurrency:   *maxCurrency,
		RewardAmount:  *reward,
		EventDuration: *duration,
		Workers:       *workers,
		Timeout:       *timeout,
		Verbose:       *verbose,
	}
	if *teams != "" {
		for _, t := range strings.Split(*teams, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Teams = append(cfg.Teams, t)
			}
		}
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		_ = closeLog()
		os.Exit(1)
	}
}
