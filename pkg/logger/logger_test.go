package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) Logger {
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
	return &slogLogger{l: slog.New(h)}
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		log := newBufferLogger(&buf, slog.LevelDebug)
		ctx := context.Background()

		Convey("Info entries carry the message and fields", func() {
			log.Info(ctx, "batch created",
				String("batch_id", "b-1"),
				Int("leads", 42))

			out := buf.String()
			So(out, ShouldContainSubstring, "batch created")
			So(out, ShouldContainSubstring, "batch_id=b-1")
			So(out, ShouldContainSubstring, "leads=42")
			So(out, ShouldContainSubstring, "level=INFO")
		})

		Convey("Error entries include the error field", func() {
			log.Error(ctx, "scoring failed", Error(errors.New("boom")))

			out := buf.String()
			So(out, ShouldContainSubstring, "level=ERROR")
			So(out, ShouldContainSubstring, "error=boom")
		})

		Convey("Entries below the handler level are dropped", func() {
			var quiet bytes.Buffer
			warnLog := newBufferLogger(&quiet, slog.LevelWarn)

			warnLog.Debug(ctx, "noisy detail")
			warnLog.Info(ctx, "routine event")
			warnLog.Warn(ctx, "something odd")

			out := quiet.String()
			So(out, ShouldNotContainSubstring, "noisy detail")
			So(out, ShouldNotContainSubstring, "routine event")
			So(out, ShouldContainSubstring, "something odd")
		})

		Convey("Named loggers group their fields", func() {
			log.Named("worker").Info(ctx, "job done", String("customer_id", "c-1"))

			So(buf.String(), ShouldContainSubstring, "worker.customer_id=c-1")
		})
	})
}

func TestFieldConstructors(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		So(String("k", "v"), ShouldResemble, Field{Key: "k", Value: "v"})
		So(Int("k", 7), ShouldResemble, Field{Key: "k", Value: 7})
		So(Int64("k", int64(7)), ShouldResemble, Field{Key: "k", Value: int64(7)})
		So(Float64("k", 0.5), ShouldResemble, Field{Key: "k", Value: 0.5})
		So(Bool("k", true), ShouldResemble, Field{Key: "k", Value: true})
		So(Duration("k", time.Second), ShouldResemble, Field{Key: "k", Value: time.Second})
		So(Any("k", []int{1}), ShouldResemble, Field{Key: "k", Value: []int{1}})

		err := errors.New("boom")
		So(Error(err), ShouldResemble, Field{Key: "error", Value: err})
	})
}

func TestGlobalLogger(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("Get initializes lazily", func() {
			global = nil
			So(Get(), ShouldNotBeNil)
		})

		Convey("Named derives from the global logger", func() {
			So(Named("api"), ShouldNotBeNil)
		})

		Convey("Sync is a no-op", func() {
			So(Sync(), ShouldBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the level parser", t, func() {
		Convey("Known levels parse", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			So(SetLevelString("info"), ShouldBeNil)
			So(SetLevelString("WARN"), ShouldBeNil)
			So(SetLevelString("warning"), ShouldBeNil)
			So(SetLevelString(" error "), ShouldBeNil)
			So(SetLevelString(""), ShouldBeNil)
		})

		Convey("Unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("The level gates the global handler", func() {
			So(SetLevelString("error"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelError)

			So(SetLevelString("info"), ShouldBeNil)
			So(levelVar.Level(), ShouldEqual, slog.LevelInfo)
		})
	})
}
