package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	appLog "rokcal/internal/log"
)

func TestLogger(t *testing.T) {
	Convey("Given a captured logger at warn level", t, func() {
		var buf bytes.Buffer
		appLog.SetOutput(&buf)
		appLog.SetLevel(appLog.LevelWarn)
		defer func() {
			appLog.SetLevel(appLog.LevelInfo)
			appLog.SetOutput(io.Discard)
		}()

		Convey("When logging below the level", func() {
			appLog.Info("quiet", "k", 1)
			appLog.Debug("quieter")
			So(buf.Len(), ShouldEqual, 0)
		})

		Convey("When logging a warning with fields", func() {
			appLog.Warn("expand: skipped", "template_id", "ark", "pattern", 2)

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["level"], ShouldEqual, "warn")
			So(line["message"], ShouldEqual, "expand: skipped")
			So(line["template_id"], ShouldEqual, "ark")
			So(line["time"], ShouldNotBeNil)
		})

		Convey("When logging an error", func() {
			appLog.Error("fetch failed", errors.New("boom"), "attempt", 1, 42, "dropped", "odd")

			out := buf.String()
			So(out, ShouldContainSubstring, `"error":"boom"`)
			So(out, ShouldContainSubstring, `"attempt":1`)
			So(out, ShouldNotContainSubstring, "dropped")
			So(strings.Count(out, "\n"), ShouldEqual, 1)
		})
	})

	Convey("Given level strings", t, func() {
		for in, want := range map[string]appLog.Level{
			"debug": appLog.LevelDebug, "INFO": appLog.LevelInfo, "": appLog.LevelInfo,
			"warning": appLog.LevelWarn, "Error": appLog.LevelError,
		} {
			got, ok := appLog.ParseLevel(in)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, want)
		}
		_, ok := appLog.ParseLevel("loud")
		So(ok, ShouldBeFalse)
	})
}
