package logger

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
)

func TestLogLevelAstiavRoundTrip(t *testing.T) {
	for _, level := range []Level{
		LevelFatal,
		LevelPanic,
		LevelError,
		LevelWarning,
		LevelInfo,
		LevelDebug,
		LevelTrace,
	} {
		require.Equal(t, level, LogLevelFromAstiav(LogLevelToAstiav(level)), level.String())
	}
}

func TestLogLevelFromAstiavVerbose(t *testing.T) {
	require.Equal(t, LevelDebug, LogLevelFromAstiav(astiav.LogLevelVerbose))
	require.Equal(t, LevelUndefined, LogLevelFromAstiav(astiav.LogLevelQuiet))
	require.Equal(t, astiav.LogLevelQuiet, LogLevelToAstiav(LevelUndefined))
}
