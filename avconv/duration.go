// duration.go provides conversions between libav timestamps, durations and frame indices.

// Package avconv provides conversion utilities for libav values.
package avconv

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
)

const (
	// see https://ffmpeg.org/doxygen/trunk/group__lavu__time.html#ga2eaefe702f95f619ea6f2d08afa01be1
	NoPTSValue = int64(math.MinInt64)
)

const (
	noDuration = time.Duration(math.MinInt64)
)

func Duration(t int64, timeBase astiav.Rational) time.Duration {
	if t == NoPTSValue {
		return noDuration
	}

	return time.Duration(float64(t) * timeBase.Float64() * float64(time.Second))
}

// Seconds converts a timestamp in the given time base into seconds.
func Seconds(t int64, timeBase astiav.Rational) float64 {
	return float64(t) * timeBase.Float64()
}

// FrameIndexToTimestamp returns the timestamp (in timeBase units) at which
// frame #index starts, for a constant frame rate of fps.
func FrameIndexToTimestamp(index int64, fps float64, timeBase astiav.Rational) int64 {
	tb := timeBase.Float64()
	if fps <= 0 || tb <= 0 {
		return 0
	}
	return int64(math.Round(float64(index) / fps / tb))
}

// TimestampToFrameIndex is the inverse of FrameIndexToTimestamp. It rounds
// to the nearest frame, since container timestamps are rarely exact.
func TimestampToFrameIndex(t int64, fps float64, timeBase astiav.Rational) int64 {
	return int64(math.Round(Seconds(t, timeBase) * fps))
}
