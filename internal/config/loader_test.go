package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	convey.Convey("Given no configuration sources", t, func() {
		cfg, err := config.Load(context.Background())

		convey.So(err, convey.ShouldBeNil)
		convey.Convey("Then the defaults apply", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.PlayQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MaxRadioLimit, convey.ShouldEqual, 100)
			convey.So(cfg.MaxShelfLimit, convey.ShouldEqual, 60)
			convey.So(cfg.DistrustGenreKey, convey.ShouldEqual, "pop")
			convey.So(cfg.DistrustGenreID, convey.ShouldEqual, "132")
			convey.So(cfg.WorkerCount, convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	convey.Convey("Given overrides in the environment", t, func() {
		t.Setenv("MELODEX_ADDR", ":7070")
		t.Setenv("MELODEX_LOG_LEVEL", "debug")
		t.Setenv("MELODEX_PLAY_QUEUE_SIZE", "256")
		t.Setenv("MELODEX_WORKER_COUNT", "3")

		cfg, err := config.Load(context.Background())

		convey.So(err, convey.ShouldBeNil)
		convey.Convey("Then env values win over defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			convey.So(cfg.PlayQueueSize, convey.ShouldEqual, 256)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)

			convey.Convey("And untouched fields keep their defaults", func() {
				convey.So(cfg.MaxRadioLimit, convey.ShouldEqual, 100)
			})
		})
	})
}

func TestLoadConfigFile(t *testing.T) {
	convey.Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "melodex.yaml")
		body := "addr: \":8088\"\nmax_radio_limit: 50\n"
		convey.So(os.WriteFile(path, []byte(body), 0o600), convey.ShouldBeNil)
		t.Setenv("MELODEX_CONFIG", path)

		convey.Convey("Then file values layer over defaults", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
			convey.So(cfg.MaxRadioLimit, convey.ShouldEqual, 50)
		})

		convey.Convey("When the environment also overrides a file value", func() {
			t.Setenv("MELODEX_ADDR", ":6060")
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then env wins over file", func() {
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.MaxRadioLimit, convey.ShouldEqual, 50)
			})
		})
	})

	convey.Convey("Given a config path that does not exist", t, func() {
		t.Setenv("MELODEX_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := config.Load(context.Background())
		convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
	})
}

func TestLoadValidation(t *testing.T) {
	convey.Convey("Given invalid override values", t, func() {
		convey.Convey("Then an empty addr is rejected", func() {
			t.Setenv("MELODEX_ADDR", "")
			_, err := config.Load(context.Background())
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Then a non-positive queue size is rejected", func() {
			t.Setenv("MELODEX_PLAY_QUEUE_SIZE", "0")
			_, err := config.Load(context.Background())
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Then a non-positive worker count is rejected", func() {
			t.Setenv("MELODEX_WORKER_COUNT", "-1")
			_, err := config.Load(context.Background())
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
