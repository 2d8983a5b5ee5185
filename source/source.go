// Package source provides decoded-frame access to video files.
//
// A Source is an exclusively owned handle: it is opened once, read
// sequentially (optionally after a seek by frame index) and closed once.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrClosed is returned by operations on a Source that was already closed.
	ErrClosed = errors.New("source is closed")

	// ErrBuiltWithoutOpenCV is returned by the OpenCV backend when the
	// binary was built without the "with_cv" build tag.
	ErrBuiltWithoutOpenCV = errors.New("built without OpenCV support (use build tag 'with_cv')")
)

// Info describes the video stream of a Source.
type Info struct {
	FrameRate  float64
	FrameCount int64
	Width      int
	Height     int
	Codec      string
}

// Duration returns FrameCount/FrameRate in seconds. The result is
// meaningless if FrameRate is not a positive finite number.
func (i Info) Duration() float64 {
	return float64(i.FrameCount) / i.FrameRate
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d @ %.3f fps, %d frames", i.Codec, i.Width, i.Height, i.FrameRate, i.FrameCount)
}

type Source interface {
	fmt.Stringer
	Info() Info

	// SeekFrame positions the cursor so that the next ReadFrame returns
	// the frame with the given index.
	SeekFrame(ctx context.Context, index int64) error

	// ReadFrame decodes the next frame. It returns io.EOF when the stream
	// is exhausted.
	ReadFrame(ctx context.Context) (image.Image, error)

	Close(ctx context.Context) error
	IsClosed() bool
}

// Opener opens a video file as a Source.
type Opener func(ctx context.Context, path string) (Source, error)
