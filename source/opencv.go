//go:build with_cv
// +build with_cv

package source

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/xaionaro-go/avframesplit/helpers/closuresignaler"
	"github.com/xaionaro-go/avframesplit/logger"
	"github.com/xaionaro-go/xsync"
	"gocv.io/x/gocv"
)

// OpenCV is a Source backed by OpenCV's VideoCapture.
type OpenCV struct {
	*closuresignaler.ClosureSignaler
	locker xsync.Mutex

	Path string

	capture *gocv.VideoCapture
	mat     gocv.Mat
	info    Info
}

var _ Source = (*OpenCV)(nil)

func OpenOpenCV(
	ctx context.Context,
	path string,
) (_ret *OpenCV, _err error) {
	logger.Debugf(ctx, "OpenOpenCV(ctx, '%s')", path)
	defer func() { logger.Debugf(ctx, "/OpenOpenCV(ctx, '%s'): %v", path, _err) }()

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("unable to open '%s': unsupported container or codec", path)
	}

	s := &OpenCV{
		ClosureSignaler: closuresignaler.New(),
		Path:            path,
		capture:         capture,
		mat:             gocv.NewMat(),
		info: Info{
			FrameRate:  capture.Get(gocv.VideoCaptureFPS),
			FrameCount: int64(capture.Get(gocv.VideoCaptureFrameCount)),
			Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
			Codec:      fourCCString(capture.Get(gocv.VideoCaptureFOURCC)),
		},
	}
	logger.Debugf(ctx, "input '%s': %s", path, s.info)
	return s, nil
}

func fourCCString(v float64) string {
	code := uint32(v)
	b := []byte{
		byte(code & 0xff),
		byte(code >> 8 & 0xff),
		byte(code >> 16 & 0xff),
		byte(code >> 24 & 0xff),
	}
	return string(b)
}

func (s *OpenCV) String() string {
	return fmt.Sprintf("OpenCV(%s)", s.Path)
}

func (s *OpenCV) Info() Info {
	return s.info
}

func (s *OpenCV) SeekFrame(
	ctx context.Context,
	index int64,
) error {
	return xsync.DoR1(ctx, &s.locker, func() error {
		if s.IsClosed() {
			return ErrClosed
		}
		if index < 0 {
			return fmt.Errorf("invalid frame index %d", index)
		}
		s.capture.Set(gocv.VideoCapturePosFrames, float64(index))
		return nil
	})
}

func (s *OpenCV) ReadFrame(
	ctx context.Context,
) (image.Image, error) {
	return xsync.DoA1R2(ctx, &s.locker, s.readFrameLocked, ctx)
}

func (s *OpenCV) readFrameLocked(
	ctx context.Context,
) (image.Image, error) {
	if s.IsClosed() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.capture.Read(&s.mat) || s.mat.Empty() {
		return nil, io.EOF
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("unable to convert the frame to an image: %w", err)
	}
	return img, nil
}

func (s *OpenCV) Close(ctx context.Context) error {
	return s.ClosureSignaler.CloseWith(ctx, func() error {
		return xsync.DoR1(ctx, &s.locker, func() error {
			logger.Debugf(ctx, "releasing input '%s'", s.Path)
			matErr := s.mat.Close()
			if err := s.capture.Close(); err != nil {
				return fmt.Errorf("unable to release the capture: %w", err)
			}
			return matErr
		})
	})
}

func openOpenCV(ctx context.Context, path string) (Source, error) {
	s, err := OpenOpenCV(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
