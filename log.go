package trajopt

import (
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NewLogger returns a logfmt logger on stderr filtered at the provided level
// (debug, info, warn or error; info if unknown).
func NewLogger(levelName string) kitlog.Logger {
	return newLogger(os.Stderr, levelName)
}

func newLogger(w io.Writer, levelName string) kitlog.Logger {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	klog = kitlog.With(klog, "ts", kitlog.DefaultTimestampUTC)
	var opt level.Option
	switch strings.ToLower(levelName) {
	case "debug":
		opt = level.AllowDebug()
	case "warn", "warning":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	return level.NewFilter(klog, opt)
}
