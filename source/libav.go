package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/avframesplit/avconv"
	"github.com/xaionaro-go/avframesplit/helpers/closuresignaler"
	"github.com/xaionaro-go/avframesplit/logger"
	"github.com/xaionaro-go/avframesplit/scaler"
	"github.com/xaionaro-go/xsync"
)

// LibAV is a Source backed by libavformat/libavcodec.
type LibAV struct {
	*closuresignaler.ClosureSignaler
	locker xsync.Mutex
	closer *astikit.Closer

	Path string

	formatContext *astiav.FormatContext
	stream        *astiav.Stream
	codecContext  *astiav.CodecContext
	packet        *astiav.Packet
	frame         *astiav.Frame
	rgbaFrame     *astiav.Frame
	converter     scaler.Scaler
	info          Info
	startTime     int64

	started   bool
	draining  bool
	skipTo    int64
	lastIndex int64
}

var _ Source = (*LibAV)(nil)

func OpenLibAV(
	ctx context.Context,
	path string,
) (_ret *LibAV, _err error) {
	logger.Debugf(ctx, "OpenLibAV(ctx, '%s')", path)
	defer func() { logger.Debugf(ctx, "/OpenLibAV(ctx, '%s'): %v", path, _err) }()

	s := &LibAV{
		ClosureSignaler: closuresignaler.New(),
		closer:          astikit.NewCloser(),
		Path:            path,
		skipTo:          -1,
		lastIndex:       -1,
	}
	defer func() {
		if _err != nil {
			s.ClosureSignaler.Close(ctx)
			if err := s.closer.Close(); err != nil {
				logger.Errorf(ctx, "unable to release a partially opened input '%s': %v", path, err)
			}
		}
	}()

	if s.formatContext = astiav.AllocFormatContext(); s.formatContext == nil {
		return nil, fmt.Errorf("unable to allocate a format context")
	}
	s.closer.Add(s.formatContext.Free)

	if err := s.formatContext.OpenInput(path, nil, nil); err != nil {
		return nil, fmt.Errorf("unable to open input '%s': %w", path, err)
	}
	s.closer.Add(s.formatContext.CloseInput)

	if err := s.formatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("unable to get stream info of '%s': %w", path, err)
	}

	s.stream = avconv.FindFirstStreamOfType(s.formatContext, astiav.MediaTypeVideo)
	if s.stream == nil {
		return nil, fmt.Errorf("no video stream found in '%s'", path)
	}
	codecParams := s.stream.CodecParameters()

	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("unable to find a decoder for codec %s", codecParams.CodecID())
	}

	if s.codecContext = astiav.AllocCodecContext(codec); s.codecContext == nil {
		return nil, fmt.Errorf("unable to allocate a codec context for %s", codec.Name())
	}
	s.closer.Add(s.codecContext.Free)

	if err := codecParams.ToCodecContext(s.codecContext); err != nil {
		return nil, fmt.Errorf("unable to copy the codec parameters to the codec context: %w", err)
	}
	s.codecContext.SetFramerate(s.formatContext.GuessFrameRate(s.stream, nil))
	if err := s.codecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("unable to open the decoder %s: %w", codec.Name(), err)
	}

	if s.packet = astiav.AllocPacket(); s.packet == nil {
		return nil, fmt.Errorf("unable to allocate a packet")
	}
	s.closer.Add(s.packet.Free)

	if s.frame = astiav.AllocFrame(); s.frame == nil {
		return nil, fmt.Errorf("unable to allocate a frame")
	}
	s.closer.Add(s.frame.Free)

	if s.rgbaFrame = astiav.AllocFrame(); s.rgbaFrame == nil {
		return nil, fmt.Errorf("unable to allocate a frame")
	}
	s.closer.Add(s.rgbaFrame.Free)
	s.closer.Add(func() {
		if s.converter != nil {
			_ = s.converter.Close(ctx)
		}
	})

	s.startTime = s.stream.StartTime()
	if s.startTime == avconv.NoPTSValue {
		s.startTime = 0
	}

	frameRate := s.guessFrameRate()
	s.info = Info{
		FrameRate:  frameRate,
		FrameCount: s.guessFrameCount(frameRate),
		Width:      codecParams.Width(),
		Height:     codecParams.Height(),
		Codec:      codec.Name(),
	}
	logger.Debugf(ctx, "input '%s' video stream #%d: %s", path, s.stream.Index(), spew.Sdump(s.info))

	return s, nil
}

func (s *LibAV) guessFrameRate() float64 {
	for _, r := range []astiav.Rational{
		s.stream.AvgFrameRate(),
		s.formatContext.GuessFrameRate(s.stream, nil),
		s.stream.RFrameRate(),
	} {
		if r.Num() > 0 && r.Den() > 0 {
			return r.Float64()
		}
	}
	return 0
}

// guessFrameCount mirrors what OpenCV reports as CAP_PROP_FRAME_COUNT: the
// container's frame count if it has one, otherwise an estimate from the
// duration.
func (s *LibAV) guessFrameCount(frameRate float64) int64 {
	if n := s.stream.NbFrames(); n > 0 {
		return n
	}
	if frameRate <= 0 {
		return 0
	}
	if d := s.stream.Duration(); d > 0 && d != avconv.NoPTSValue {
		return int64(avconv.Duration(d, s.stream.TimeBase()).Seconds()*frameRate + 0.5)
	}
	if d := s.formatContext.Duration(); d > 0 && d != avconv.NoPTSValue {
		return int64(float64(d)/float64(astiav.TimeBase)*frameRate + 0.5)
	}
	return 0
}

func (s *LibAV) String() string {
	return fmt.Sprintf("LibAV(%s)", s.Path)
}

func (s *LibAV) Info() Info {
	return s.info
}

func (s *LibAV) SeekFrame(
	ctx context.Context,
	index int64,
) error {
	return xsync.DoA2R1(ctx, &s.locker, s.seekFrameLocked, ctx, index)
}

func (s *LibAV) seekFrameLocked(
	ctx context.Context,
	index int64,
) (_err error) {
	logger.Debugf(ctx, "SeekFrame(ctx, %d)", index)
	defer func() { logger.Debugf(ctx, "/SeekFrame(ctx, %d): %v", index, _err) }()
	if s.IsClosed() {
		return ErrClosed
	}
	if index < 0 {
		return fmt.Errorf("invalid frame index %d", index)
	}
	if index == 0 && !s.started {
		return nil
	}
	if s.info.FrameRate <= 0 {
		return fmt.Errorf("cannot seek by frame index: unknown frame rate")
	}

	ts := s.startTime + avconv.FrameIndexToTimestamp(index, s.info.FrameRate, s.stream.TimeBase())
	err := s.formatContext.SeekFrame(s.stream.Index(), ts, astiav.NewSeekFlags(astiav.SeekFlagBackward))
	if err != nil {
		return fmt.Errorf("unable to seek to frame %d (ts: %d): %w", index, ts, err)
	}
	s.codecContext.FlushBuffers()
	s.started = true
	s.draining = false
	s.skipTo = index
	s.lastIndex = -1
	return nil
}

func (s *LibAV) ReadFrame(
	ctx context.Context,
) (image.Image, error) {
	return xsync.DoA1R2(ctx, &s.locker, s.readFrameLocked, ctx)
}

func (s *LibAV) readFrameLocked(
	ctx context.Context,
) (image.Image, error) {
	if s.IsClosed() {
		return nil, ErrClosed
	}
	s.started = true
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := s.decodeNextLocked(ctx)
		if err != nil {
			return nil, err
		}

		idx, known := frameIndex(f.Pts(), f.PktDts(), s.lastIndex, s.startTime, s.info.FrameRate, s.stream.TimeBase())
		if known {
			s.lastIndex = idx
		}

		// the seek lands on a keyframe at or before the target,
		// so the frames in between are decoded and dropped
		if s.skipTo >= 0 {
			if !known {
				logger.Warnf(ctx, "a frame without timestamps right after seeking to %d, assuming it is the target", s.skipTo)
			}
			if known && idx < s.skipTo {
				logger.Tracef(ctx, "dropping frame %d (pts: %d) while seeking to %d", idx, f.Pts(), s.skipTo)
				f.Unref()
				continue
			}
			s.skipTo = -1
		}

		img, err := s.toImageLocked(ctx, f)
		f.Unref()
		if err != nil {
			return nil, err
		}
		return img, nil
	}
}

// frameIndex maps a decoded frame to its index: by pts, by the dts of the
// packet it came from, or else as the successor of the previous frame.
func frameIndex(
	pts, pktDts int64,
	lastIndex int64,
	startTime int64,
	frameRate float64,
	timeBase astiav.Rational,
) (int64, bool) {
	ts := pts
	if ts == avconv.NoPTSValue {
		ts = pktDts
	}
	if ts != avconv.NoPTSValue {
		return avconv.TimestampToFrameIndex(ts-startTime, frameRate, timeBase), true
	}
	if lastIndex >= 0 {
		return lastIndex + 1, true
	}
	return 0, false
}

func (s *LibAV) decodeNextLocked(
	ctx context.Context,
) (*astiav.Frame, error) {
	for {
		err := s.codecContext.ReceiveFrame(s.frame)
		switch {
		case err == nil:
			return s.frame, nil
		case errors.Is(err, astiav.ErrEof):
			return nil, io.EOF
		case errors.Is(err, astiav.ErrEagain):
		default:
			return nil, fmt.Errorf("unable to receive a frame from the decoder: %w", err)
		}

		if s.draining {
			return nil, io.EOF
		}
		if err := s.sendNextPacketLocked(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *LibAV) sendNextPacketLocked(
	ctx context.Context,
) error {
	for {
		err := s.formatContext.ReadFrame(s.packet)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio):
			logger.Debugf(ctx, "end of input '%s', draining the decoder", s.Path)
			s.draining = true
			if err := s.codecContext.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
				return fmt.Errorf("unable to drain the decoder: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("unable to read a packet: %w", err)
		}

		if s.packet.StreamIndex() != s.stream.Index() {
			s.packet.Unref()
			continue
		}

		logger.Tracef(ctx, "sending packet (pts:%d, dts:%d, size:%d)", s.packet.Pts(), s.packet.Dts(), s.packet.Size())
		err = s.codecContext.SendPacket(s.packet)
		s.packet.Unref()
		if err != nil {
			return fmt.Errorf("unable to send a packet to the decoder: %w", err)
		}
		return nil
	}
}

// toImageLocked copies the decoded frame into a Go image. Pixel formats
// without a Go counterpart are converted to RGBA first.
func (s *LibAV) toImageLocked(
	ctx context.Context,
	f *astiav.Frame,
) (image.Image, error) {
	img, err := frameToImage(f)
	if err == nil {
		return img, nil
	}
	logger.Tracef(ctx, "cannot convert %s directly: %v", f.PixelFormat(), err)

	if s.converter == nil || !s.converter.Matches(f) {
		if err := s.resetConverterLocked(ctx, f); err != nil {
			return nil, err
		}
	}
	if err := s.converter.ScaleFrame(ctx, f, s.rgbaFrame); err != nil {
		return nil, err
	}
	img, err = frameToImage(s.rgbaFrame)
	if err != nil {
		return nil, fmt.Errorf("unable to convert an RGBA frame to an image: %w", err)
	}
	return img, nil
}

func (s *LibAV) resetConverterLocked(
	ctx context.Context,
	f *astiav.Frame,
) error {
	if s.converter != nil {
		_ = s.converter.Close(ctx)
		s.converter = nil
	}
	res := scaler.Resolution{Width: f.Width(), Height: f.Height()}
	converter, err := scaler.NewPixelFormatConverter(ctx, res, f.PixelFormat(), astiav.PixelFormatRgba)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "using %s", converter)
	s.converter = converter

	s.rgbaFrame.Unref()
	s.rgbaFrame.SetWidth(res.Width)
	s.rgbaFrame.SetHeight(res.Height)
	s.rgbaFrame.SetPixelFormat(astiav.PixelFormatRgba)
	if err := s.rgbaFrame.AllocBuffer(1); err != nil {
		return fmt.Errorf("unable to allocate an RGBA frame buffer: %w", err)
	}
	return nil
}

func frameToImage(f *astiav.Frame) (image.Image, error) {
	img, err := f.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("unable to guess the image format: %w", err)
	}
	if err := f.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("unable to convert the frame to an image: %w", err)
	}
	return img, nil
}

func (s *LibAV) Close(ctx context.Context) error {
	return s.ClosureSignaler.CloseWith(ctx, func() error {
		return xsync.DoR1(ctx, &s.locker, func() error {
			logger.Debugf(ctx, "releasing input '%s'", s.Path)
			return s.closer.Close()
		})
	})
}
