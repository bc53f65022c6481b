package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/teamclash/internal/config"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Teams, convey.ShouldResemble, []string{"cat", "dog"})
				convey.So(cfg.SettlementBatchSize, convey.ShouldEqual, 50)
				convey.So(cfg.MaxEventsLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TEAMCLASH_ADDR", ":8080")
			_ = os.Setenv("TEAMCLASH_TEAMS", " Red, blue ,green,")
			_ = os.Setenv("TEAMCLASH_SETTLEMENT_INTERVAL_MS", "0")
			_ = os.Setenv("TEAMCLASH_DEFAULT_REWARD_AMOUNT", "75")
			_ = os.Setenv("TEAMCLASH_LOG_FORMAT", "JSON")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TeamList(), convey.ShouldResemble, []model.Team{"red", "blue", "green"})
				convey.So(cfg.SettlementIntervalMS, convey.ShouldEqual, 0)
				convey.So(cfg.DefaultRewardAmount, convey.ShouldEqual, 75)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
store: postgres
database_dsn: "host=db user=app dbname=teamclash sslmode=disable"
teams: [owls]
settlement_batch_size: 10
settlement_timeout_ms: 2500
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMCLASH_CONFIG", tmpFile)
			_ = os.Setenv("TEAMCLASH_TEAMS", "owls,larks")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should load and env should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
				convey.So(cfg.DatabaseDSN, convey.ShouldContainSubstring, "dbname=teamclash")
				convey.So(cfg.Teams, convey.ShouldResemble, []string{"owls", "larks"})
				convey.So(cfg.SettlementBatchSize, convey.ShouldEqual, 10)
				convey.So(cfg.SettlementTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.SettlementConcurrency, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When a YAML team list is shorter than the defaults", func() {
			tmpFile := createTempConfigFile("teams: [red, blue, green]\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMCLASH_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then only the file teams should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Teams, convey.ShouldResemble, []string{"red", "blue", "green"})
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMCLASH_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TEAMCLASH_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TEAMCLASH_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the store is unknown", func() {
			_ = os.Setenv("TEAMCLASH_STORE", "redis")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When teams collide after normalization", func() {
			_ = os.Setenv("TEAMCLASH_TEAMS", "Cat,cat")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When metrics settings come from the environment", func() {
			_ = os.Setenv("TEAMCLASH_METRICS_NAMESPACE", "school")
			_ = os.Setenv("TEAMCLASH_METRICS_ENABLED", "false")
			_ = os.Setenv("TEAMCLASH_METRICS_LATENCY_BUCKETS", "1, 10,100")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "school")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "competition")
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsLatencyBuckets, convey.ShouldResemble, []float64{1, 10, 100})
			})
		})

		convey.Convey("When a team is named after the draw outcome", func() {
			_ = os.Setenv("TEAMCLASH_TEAMS", "Draw,dog")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "teams[0] failed ne")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TEAMCLASH_SETTLEMENT_BATCH_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"TEAMCLASH_CONFIG",
		"TEAMCLASH_ADDR",
		"TEAMCLASH_TEAMS",
		"TEAMCLASH_STORE",
		"TEAMCLASH_LOG_FORMAT",
		"TEAMCLASH_DEFAULT_REWARD_AMOUNT",
		"TEAMCLASH_SETTLEMENT_INTERVAL_MS",
		"TEAMCLASH_SETTLEMENT_BATCH_SIZE",
		"TEAMCLASH_METRICS_NAMESPACE",
		"TEAMCLASH_METRICS_ENABLED",
		"TEAMCLASH_METRICS_LATENCY_BUCKETS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "teamclash-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
