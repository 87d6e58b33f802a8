package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/grimpeur/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.CacheSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GRIMPEUR_ADDR", ":8080")
			_ = os.Setenv("GRIMPEUR_QUEUE_SIZE", "512")
			_ = os.Setenv("GRIMPEUR_WORKER_COUNT", "4")
			_ = os.Setenv("GRIMPEUR_CACHE_SIZE", "32")
			_ = os.Setenv("GRIMPEUR_THRESHOLD_POWER_W", "305")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 512)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.CacheSize, convey.ShouldEqual, 32)
				convey.So(cfg.ThresholdPowerW, convey.ShouldEqual, 305.0)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()

			dir := t.TempDir()
			path := filepath.Join(dir, "grimpeur.yaml")
			doc := []byte("addr: \":7070\"\nworker_count: 3\nentry_threshold_pct: 3.0\n")
			convey.So(os.WriteFile(path, doc, 0o600), convey.ShouldBeNil)

			_ = os.Setenv("GRIMPEUR_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.EntryThresholdPct, convey.ShouldEqual, 3.0)
			})
		})

		convey.Convey("When env vars produce an invalid configuration", func() {
			clearConfigEnvVars()
			_ = os.Setenv("GRIMPEUR_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then loading should fail with ErrInvalidConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the hysteresis thresholds are inverted", func() {
			clearConfigEnvVars()
			_ = os.Setenv("GRIMPEUR_ENTRY_THRESHOLD_PCT", "1.0")
			_ = os.Setenv("GRIMPEUR_EXIT_THRESHOLD_PCT", "2.0")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then loading should fail with ErrInvalidConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"GRIMPEUR_CONFIG",
		"GRIMPEUR_ADDR",
		"GRIMPEUR_QUEUE_SIZE",
		"GRIMPEUR_WORKER_COUNT",
		"GRIMPEUR_DEDUPE_SIZE",
		"GRIMPEUR_CACHE_SIZE",
		"GRIMPEUR_ENTRY_THRESHOLD_PCT",
		"GRIMPEUR_EXIT_THRESHOLD_PCT",
		"GRIMPEUR_THRESHOLD_POWER_W",
	} {
		_ = os.Unsetenv(key)
	}
}
