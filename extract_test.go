package avframesplit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avframesplit/framesink"
	"github.com/xaionaro-go/avframesplit/internal/testmedia"
	"github.com/xaionaro-go/avframesplit/source"
)

func testCtx() context.Context {
	l := logrus.Default().WithLevel(logger.LevelWarning)
	return logger.CtxWithLogger(context.Background(), l)
}

type fakeSource struct {
	info       source.Info
	available  int64
	next       int64
	readErr    error
	seekErr    error
	closeErr   error
	closeCount int
	seeks      []int64
}

var _ source.Source = (*fakeSource)(nil)

func (s *fakeSource) String() string { return "fakeSource" }

func (s *fakeSource) Info() source.Info { return s.info }

func (s *fakeSource) SeekFrame(ctx context.Context, index int64) error {
	s.seeks = append(s.seeks, index)
	if s.seekErr != nil {
		return s.seekErr
	}
	s.next = index
	return nil
}

func (s *fakeSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if s.next >= s.available {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, io.EOF
	}
	img := image.NewGray(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.Gray{Y: uint8(s.next)})
	s.next++
	return img, nil
}

func (s *fakeSource) Close(ctx context.Context) error {
	s.closeCount++
	return s.closeErr
}

func (s *fakeSource) IsClosed() bool { return s.closeCount > 0 }

func (s *fakeSource) opener() Option {
	return OptionOpener(func(ctx context.Context, path string) (source.Source, error) {
		return s, nil
	})
}

func newFakeSource(fps float64, frameCount int64) *fakeSource {
	return &fakeSource{
		info: source.Info{
			FrameRate:  fps,
			FrameCount: frameCount,
			Width:      4,
			Height:     2,
			Codec:      "fake",
		},
		available: frameCount,
	}
}

func touchVideo(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0644))
	return path
}

func listDir(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestExtractFramesWindow(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(30, 750)
	outDir := filepath.Join(t.TempDir(), "out", "nested")

	result, err := ExtractFrames(ctx, touchVideo(t), outDir, 10, 20, src.opener())
	require.NoError(t, err)
	require.Equal(t, FrameWindow{Start: 300, End: 600}, result.Window)
	require.Equal(t, int64(301), result.FramesWritten)
	require.Equal(t, int64(600), result.LastFrame)
	require.Equal(t, StopReasonWindowEnd, result.StopReason)
	require.Equal(t, 25.0, result.Duration)
	require.Positive(t, result.BytesWritten)
	require.Equal(t, []int64{300}, src.seeks)
	require.Equal(t, 1, src.closeCount)

	names := listDir(t, outDir)
	require.Len(t, names, 301)
	require.Equal(t, "frame_0300.png", names[0])
	require.Equal(t, "frame_0600.png", names[len(names)-1])
	require.Equal(t, filepath.Join(outDir, "frame_0300.png"), result.Files[0])

	// the first written file holds the frame the window starts at
	f, err := os.Open(result.Files[0])
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	require.Equal(t, uint8(300%256), color.GrayModel.Convert(img.At(0, 0)).(color.Gray).Y)
}

func TestExtractFramesTruncatesToFrameIndices(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(24, 240)
	outDir := t.TempDir()

	result, err := ExtractFrames(ctx, touchVideo(t), outDir, 0.1, 0.2, src.opener())
	require.NoError(t, err)
	require.Equal(t, FrameWindow{Start: 2, End: 4}, result.Window)
	require.Equal(t, []string{"frame_0002.png", "frame_0003.png", "frame_0004.png"}, listDir(t, outDir))
}

func TestExtractFramesWholeVideo(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 50)
	outDir := t.TempDir()

	result, err := ExtractFrames(ctx, touchVideo(t), outDir, 0, 5, src.opener())
	require.NoError(t, err)
	require.Equal(t, FrameWindow{Start: 0, End: 50}, result.Window)
	require.Equal(t, int64(50), result.FramesWritten)
	require.Equal(t, int64(49), result.LastFrame)
	require.Equal(t, StopReasonEndOfStream, result.StopReason)
	require.Len(t, listDir(t, outDir), 50)
}

func TestExtractFramesEarlyEndOfStream(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	src.available = 35
	outDir := t.TempDir()

	result, err := ExtractFrames(ctx, touchVideo(t), outDir, 3, 6, src.opener())
	require.NoError(t, err)
	require.Equal(t, StopReasonEndOfStream, result.StopReason)
	require.Equal(t, int64(5), result.FramesWritten)
	require.Equal(t, int64(34), result.LastFrame)
	require.Len(t, listDir(t, outDir), 5)
	require.Equal(t, 1, src.closeCount)
}

func TestExtractFramesDecodeErrorMidStream(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	src.available = 32
	src.readErr = errors.New("corrupted packet")
	outDir := t.TempDir()

	result, err := ExtractFrames(ctx, touchVideo(t), outDir, 3, 6, src.opener())
	require.NoError(t, err)
	require.Equal(t, StopReasonEndOfStream, result.StopReason)
	require.Equal(t, int64(2), result.FramesWritten)
}

func TestExtractFramesIdempotent(t *testing.T) {
	ctx := testCtx()
	outDir := t.TempDir()
	video := touchVideo(t)

	for i := 0; i < 2; i++ {
		src := newFakeSource(10, 100)
		result, err := ExtractFrames(ctx, video, outDir, 1, 2, src.opener())
		require.NoError(t, err)
		require.Equal(t, int64(11), result.FramesWritten)
	}
	require.Len(t, listDir(t, outDir), 11)
}

func TestExtractFramesOptions(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	outDir := t.TempDir()

	_, err := ExtractFrames(
		ctx, touchVideo(t), outDir, 0.5, 0.7,
		src.opener(),
		OptionFormat(framesink.FormatBMP),
		OptionIndexWidth(6),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"frame_000005.bmp", "frame_000006.bmp", "frame_000007.bmp"}, listDir(t, outDir))
}

func TestExtractFramesNotFound(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	outDir := filepath.Join(t.TempDir(), "out")
	missing := filepath.Join(t.TempDir(), "missing.mp4")

	_, err := ExtractFrames(ctx, missing, outDir, 0, 1, src.opener())
	require.Error(t, err)
	require.Equal(t, ErrorKindNotFound, KindOf(err))
	require.ErrorAs(t, err, &ErrNotFound{})
	require.Contains(t, err.Error(), missing)
	require.NoDirExists(t, outDir)
	require.Zero(t, src.closeCount)

	_, err = ExtractFrames(ctx, t.TempDir(), outDir, 0, 1, src.opener())
	require.Equal(t, ErrorKindNotFound, KindOf(err))
}

func TestExtractFramesValidation(t *testing.T) {
	ctx := testCtx()
	for _, tc := range []struct {
		start, end float64
		message    string
	}{
		{-1, 5, "non-negative"},
		{5, -1, "non-negative"},
		{5, 5, "less than"},
		{7, 5, "less than"},
		{0, 26, "exceeds video length of 25.00 seconds"},
		{30, 40, "exceeds video length"},
	} {
		t.Run(fmt.Sprintf("%v-%v", tc.start, tc.end), func(t *testing.T) {
			src := newFakeSource(30, 750)
			outDir := t.TempDir()
			_, err := ExtractFrames(ctx, touchVideo(t), outDir, tc.start, tc.end, src.opener())
			require.Error(t, err)
			require.Equal(t, ErrorKindValidation, KindOf(err))
			require.Contains(t, err.Error(), tc.message)
			require.Empty(t, listDir(t, outDir))
			require.Equal(t, 1, src.closeCount)
		})
	}
}

func TestExtractFramesBadFrameRate(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(0, 100)
	outDir := t.TempDir()

	_, err := ExtractFrames(ctx, touchVideo(t), outDir, 0, 1, src.opener())
	require.Equal(t, ErrorKindDecode, KindOf(err))
	require.Empty(t, listDir(t, outDir))
	require.Equal(t, 1, src.closeCount)
}

func TestExtractFramesOpenFailure(t *testing.T) {
	ctx := testCtx()
	openErr := errors.New("no video stream")
	opener := OptionOpener(func(ctx context.Context, path string) (source.Source, error) {
		return nil, openErr
	})

	_, err := ExtractFrames(ctx, touchVideo(t), t.TempDir(), 0, 1, opener)
	require.Equal(t, ErrorKindDecode, KindOf(err))
	require.ErrorIs(t, err, openErr)
}

func TestExtractFramesSeekFailure(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	src.seekErr = errors.New("seek is not supported")

	_, err := ExtractFrames(ctx, touchVideo(t), t.TempDir(), 1, 2, src.opener())
	require.Equal(t, ErrorKindDecode, KindOf(err))
	require.ErrorIs(t, err, src.seekErr)
	require.Equal(t, 1, src.closeCount)
}

func TestExtractFramesWriteFailure(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	outDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(outDir, "frame_0013.png"), 0755))

	result, err := ExtractFrames(ctx, touchVideo(t), outDir, 1, 2, src.opener())
	require.Error(t, err)
	require.Equal(t, ErrorKindIO, KindOf(err))
	failedPath := filepath.Join(outDir, "frame_0013.png")
	var ioErr ErrIO
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, failedPath, ioErr.Path)
	require.Equal(t, 1, strings.Count(err.Error(), failedPath), err.Error())
	require.Equal(t, int64(3), result.FramesWritten)
	for _, name := range []string{"frame_0010.png", "frame_0011.png", "frame_0012.png"} {
		require.FileExists(t, filepath.Join(outDir, name))
	}
	require.NoFileExists(t, filepath.Join(outDir, "frame_0014.png"))
	require.Equal(t, 1, src.closeCount)
}

func TestExtractFramesOutputDirIsFile(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	outDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(outDir, nil, 0644))

	_, err := ExtractFrames(ctx, touchVideo(t), outDir, 1, 2, src.opener())
	require.Equal(t, ErrorKindIO, KindOf(err))
	require.Zero(t, src.closeCount)
}

func TestExtractFramesCloseFailure(t *testing.T) {
	ctx := testCtx()
	src := newFakeSource(10, 100)
	src.closeErr = errors.New("close failed")

	_, err := ExtractFrames(ctx, touchVideo(t), t.TempDir(), 1, 2, src.opener())
	require.Equal(t, ErrorKindUnexpected, KindOf(err))
	require.ErrorIs(t, err, src.closeErr)
	require.Equal(t, 1, src.closeCount)
}

func TestExtractFramesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(testCtx())
	cancel()
	src := newFakeSource(10, 100)
	outDir := t.TempDir()

	_, err := ExtractFrames(ctx, touchVideo(t), outDir, 1, 2, src.opener())
	require.Equal(t, ErrorKindUnexpected, KindOf(err))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, listDir(t, outDir))
	require.Equal(t, 1, src.closeCount)
}

func TestExtractFramesLibAV(t *testing.T) {
	ctx := testCtx()
	video := testmedia.Y4M{Width: 16, Height: 8, FPS: 10, NumFrames: 30}
	videoPath := filepath.Join(t.TempDir(), "video.y4m")
	require.NoError(t, video.WriteFile(videoPath))

	src, err := source.OpenLibAV(ctx, videoPath)
	require.NoError(t, err)
	info := src.Info()
	require.NoError(t, src.Close(ctx))
	if info.FrameCount == 0 {
		t.Skip("the demuxer does not report the stream length")
	}

	outDir := t.TempDir()
	result, err := ExtractFrames(ctx, videoPath, outDir, 1, 2, OptionOpener(source.BackendLibAV.Opener()))
	require.NoError(t, err)
	require.Equal(t, FrameWindow{Start: 10, End: 20}, result.Window)
	require.Equal(t, int64(11), result.FramesWritten)

	f, err := os.Open(filepath.Join(outDir, "frame_0010.png"))
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}

func lumaOfFile(t *testing.T, path string) uint8 {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	b := img.Bounds()
	return color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray).Y
}

func TestExtractFramesLibAVBetweenKeyframes(t *testing.T) {
	ctx := testCtx()
	video := testmedia.MPEG4{Width: 32, Height: 32, FPS: 10, NumFrames: 30, GOPSize: 12}
	videoPath := filepath.Join(t.TempDir(), "video.avi")
	require.NoError(t, video.WriteFile(videoPath))

	allDir := t.TempDir()
	_, err := ExtractFrames(ctx, videoPath, allDir, 0, 2.9, OptionOpener(source.BackendLibAV.Opener()))
	require.NoError(t, err)

	outDir := t.TempDir()
	result, err := ExtractFrames(ctx, videoPath, outDir, 1.3, 1.7, OptionOpener(source.BackendLibAV.Opener()))
	require.NoError(t, err)
	require.Equal(t, FrameWindow{Start: 13, End: 17}, result.Window)
	require.Equal(t, int64(5), result.FramesWritten)
	require.Equal(t, StopReasonWindowEnd, result.StopReason)

	for index := 13; index <= 17; index++ {
		name := fmt.Sprintf("frame_%04d.png", index)
		require.Equal(t,
			lumaOfFile(t, filepath.Join(allDir, name)),
			lumaOfFile(t, filepath.Join(outDir, name)),
			name,
		)
	}
	require.NotEqual(t,
		lumaOfFile(t, filepath.Join(allDir, "frame_0012.png")),
		lumaOfFile(t, filepath.Join(outDir, "frame_0013.png")),
	)
}
