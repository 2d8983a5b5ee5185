// astiav.go bridges libav's own logging into go-belt.

package logger

import (
	"strings"

	"github.com/asticode/go-astiav"
)

func LogLevelToAstiav(level Level) astiav.LogLevel {
	switch level {
	case LevelTrace:
		return astiav.LogLevelTrace
	case LevelDebug:
		return astiav.LogLevelDebug
	case LevelInfo:
		return astiav.LogLevelInfo
	case LevelWarning:
		return astiav.LogLevelWarning
	case LevelError:
		return astiav.LogLevelError
	case LevelPanic:
		return astiav.LogLevelPanic
	case LevelFatal:
		return astiav.LogLevelFatal
	default:
		return astiav.LogLevelQuiet
	}
}

func LogLevelFromAstiav(level astiav.LogLevel) Level {
	switch {
	case level <= astiav.LogLevelQuiet:
		return LevelUndefined
	case level <= astiav.LogLevelPanic:
		return LevelPanic
	case level <= astiav.LogLevelFatal:
		return LevelFatal
	case level <= astiav.LogLevelError:
		return LevelError
	case level <= astiav.LogLevelWarning:
		return LevelWarning
	case level <= astiav.LogLevelInfo:
		return LevelInfo
	case level <= astiav.LogLevelDebug:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// BridgeAstiav routes libav log messages into l, with libav's verbosity
// matched to l's level.
func BridgeAstiav(l Logger) {
	astiav.SetLogLevel(LogLevelToAstiav(l.Level()))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		lvl := LogLevelFromAstiav(level)
		if lvl == LevelUndefined {
			return
		}
		l.Logf(lvl, "%s%s", strings.TrimSpace(msg), cs)
	})
}
