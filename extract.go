package avframesplit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avframesplit/framesink"
	"github.com/xaionaro-go/avframesplit/logger"
	"github.com/xaionaro-go/avframesplit/source"
)

type StopReason int

const (
	StopReasonUndefined = StopReason(iota)
	StopReasonWindowEnd
	StopReasonEndOfStream
)

func (r StopReason) String() string {
	switch r {
	case StopReasonUndefined:
		return "<undefined>"
	case StopReasonWindowEnd:
		return "window_end"
	case StopReasonEndOfStream:
		return "end_of_stream"
	default:
		return fmt.Sprintf("<unknown_stop_reason_%d>", int(r))
	}
}

type Result struct {
	Window        FrameWindow
	FrameRate     float64
	Duration      float64
	FramesWritten int64
	LastFrame     int64
	Files         []string
	BytesWritten  int64
	StopReason    StopReason
}

// ExtractFrames writes the frames of videoPath between startTime and
// endTime (in seconds, both inclusive after conversion to frame indices)
// into outputDir, creating the directory if needed.
//
// Running out of frames before the end of the window is not an error; it
// is reported as StopReasonEndOfStream. Files written before a failure are
// left in place.
func ExtractFrames(
	ctx context.Context,
	videoPath string,
	outputDir string,
	startTime, endTime float64,
	opts ...Option,
) (_ret *Result, _err error) {
	logger.Debugf(ctx, "ExtractFrames(ctx, '%s', '%s', %v, %v)", videoPath, outputDir, startTime, endTime)
	defer func() { logger.Debugf(ctx, "/ExtractFrames(ctx, '%s', '%s', %v, %v): %v", videoPath, outputDir, startTime, endTime, _err) }()

	cfg := Options(opts).Config()
	if cfg.Opener == nil {
		cfg.Opener = source.BackendLibAV.Opener()
	}
	ctx = belt.WithField(ctx, "video", videoPath)

	stat, err := os.Stat(videoPath)
	switch {
	case err == nil && stat.Mode().IsRegular():
	case err == nil, errors.Is(err, os.ErrNotExist):
		return nil, ErrNotFound{Path: videoPath}
	default:
		return nil, ErrIO{Path: videoPath, Err: err}
	}

	sink, err := framesink.NewDirectory(outputDir, cfg.Format, cfg.IndexWidth)
	if err != nil {
		return nil, ErrValidation{Reason: err.Error()}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, ErrIO{Path: outputDir, Err: fmt.Errorf("unable to create the output directory: %w", err)}
	}

	src, err := cfg.Opener(ctx, videoPath)
	if err != nil {
		return nil, ErrDecode{Err: err}
	}
	defer func() {
		if err := src.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close %s: %v", src, err)
			if _err == nil {
				_err = ErrUnexpected{Err: fmt.Errorf("unable to close %s: %w", src, err)}
			}
		}
	}()

	return extractFromSource(ctx, src, sink, startTime, endTime)
}

func extractFromSource(
	ctx context.Context,
	src source.Source,
	sink *framesink.Directory,
	startTime, endTime float64,
) (*Result, error) {
	info := src.Info()
	logger.Debugf(ctx, "source: %s", info)
	if err := validateFrameRate(info.FrameRate); err != nil {
		return nil, err
	}
	duration := info.Duration()
	if err := ValidateTimeRange(startTime, endTime, duration); err != nil {
		return nil, err
	}

	window := NewFrameWindow(startTime, endTime, info.FrameRate)
	result := &Result{
		Window:     window,
		FrameRate:  info.FrameRate,
		Duration:   duration,
		LastFrame:  -1,
		StopReason: StopReasonWindowEnd,
	}
	logger.Debugf(ctx, "extracting frames %s into %s", window, sink)

	if err := src.SeekFrame(ctx, window.Start); err != nil {
		return nil, ErrDecode{Err: fmt.Errorf("unable to seek to frame %d: %w", window.Start, err)}
	}

	for index := window.Start; index <= window.End; index++ {
		if err := ctx.Err(); err != nil {
			return result, ErrUnexpected{Err: err}
		}

		img, err := src.ReadFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return result, ErrUnexpected{Err: err}
			}
			if err != io.EOF {
				logger.Warnf(ctx, "stopping at frame %d, unable to decode further: %v", index, err)
			} else {
				logger.Debugf(ctx, "the stream ended at frame %d, before the end of the window %s", index, window)
			}
			result.StopReason = StopReasonEndOfStream
			break
		}

		path, size, err := sink.WriteFrame(ctx, index, img)
		if err != nil {
			return result, ErrIO{Path: path, Err: err}
		}
		result.Files = append(result.Files, path)
		result.FramesWritten++
		result.BytesWritten += size
		result.LastFrame = index
	}

	logger.Infof(ctx, "extracted frames from %vs to %vs to '%s'", startTime, endTime, sink.Path)
	return result, nil
}
