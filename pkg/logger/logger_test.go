package logger_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/tidewave/melodex/pkg/logger"
)

func TestGetInitializesLazily(t *testing.T) {
	convey.Convey("Given no explicit Init call", t, func() {
		l := logger.Get()
		convey.So(l, convey.ShouldNotBeNil)

		convey.Convey("Then Named returns a scoped logger", func() {
			convey.So(l.Named("scope"), convey.ShouldNotBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	convey.Convey("Given level names", t, func() {
		convey.Convey("Then known names are accepted", func() {
			for _, lvl := range []string{"debug", "info", "warn", "warning", "error", "", "  INFO  "} {
				convey.So(logger.SetLevelString(lvl), convey.ShouldBeNil)
			}
		})

		convey.Convey("Then unknown names are rejected", func() {
			convey.So(logger.SetLevelString("verbose"), convey.ShouldNotBeNil)
		})

		convey.So(logger.SetLevelString("info"), convey.ShouldBeNil)
	})
}

func TestFieldConstructors(t *testing.T) {
	convey.Convey("Given the field constructors", t, func() {
		convey.So(logger.String("k", "v"), convey.ShouldResemble, logger.Field{Key: "k", Value: "v"})
		convey.So(logger.Int("n", 3).Key, convey.ShouldEqual, "n")
		convey.So(logger.Float64("f", 0.5).Value, convey.ShouldEqual, 0.5)
		convey.So(logger.Any("a", []int{1}).Key, convey.ShouldEqual, "a")
	})
}
