package avframesplit

import (
	"fmt"
	"math"
)

// FrameWindow is an inclusive range of frame indices.
type FrameWindow struct {
	Start int64
	End   int64
}

// NewFrameWindow converts a time range (in seconds) into frame indices,
// truncating toward zero.
func NewFrameWindow(startTime, endTime, frameRate float64) FrameWindow {
	return FrameWindow{
		Start: int64(startTime * frameRate),
		End:   int64(endTime * frameRate),
	}
}

// Len returns the number of frames in the window.
func (w FrameWindow) Len() int64 {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

func (w FrameWindow) Contains(index int64) bool {
	return index >= w.Start && index <= w.End
}

func (w FrameWindow) String() string {
	return fmt.Sprintf("[%d:%d]", w.Start, w.End)
}

func validateFrameRate(frameRate float64) error {
	if !(frameRate > 0) || math.IsInf(frameRate, 0) {
		return ErrDecode{Err: fmt.Errorf("the source reports an unusable frame rate: %v", frameRate)}
	}
	return nil
}

// ValidateTimeRange checks 0 <= startTime < endTime <= duration.
func ValidateTimeRange(startTime, endTime, duration float64) error {
	if math.IsNaN(startTime) || math.IsNaN(endTime) {
		return ErrValidation{Reason: "start and end times must be numbers"}
	}
	if startTime < 0 || endTime < 0 {
		return ErrValidation{Reason: "start and end times must be non-negative"}
	}
	if startTime >= endTime {
		return ErrValidation{Reason: "start time must be less than end time"}
	}
	if startTime > duration || endTime > duration {
		return ErrValidation{Reason: fmt.Sprintf("specified time range exceeds video length of %.2f seconds", duration)}
	}
	return nil
}
