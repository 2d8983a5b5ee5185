package testmedia

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
)

// MPEG4 describes an MPEG-4 Part 2 video in an AVI container with a
// keyframe every GOPSize frames and no B-frames. Frame #i is flat gray
// with luma Luma(i).
type MPEG4 struct {
	Width     int
	Height    int
	FPS       int
	NumFrames int
	GOPSize   int
}

func (v MPEG4) WriteFile(path string) (_err error) {
	if v.Width%2 != 0 || v.Height%2 != 0 {
		return fmt.Errorf("the resolution must be even, got %dx%d", v.Width, v.Height)
	}
	closer := astikit.NewCloser()
	defer func() {
		if err := closer.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to finalize '%s': %w", path, err)
		}
	}()

	codec := astiav.FindEncoder(astiav.CodecIDMpeg4)
	if codec == nil {
		return fmt.Errorf("the mpeg4 encoder is not available")
	}

	formatContext, err := astiav.AllocOutputFormatContext(nil, "avi", path)
	if err != nil {
		return fmt.Errorf("unable to allocate an output format context: %w", err)
	}
	if formatContext == nil {
		return fmt.Errorf("unable to allocate an output format context")
	}
	closer.Add(formatContext.Free)

	stream := formatContext.NewStream(nil)
	if stream == nil {
		return fmt.Errorf("unable to create a stream")
	}

	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return fmt.Errorf("unable to allocate a codec context")
	}
	closer.Add(codecContext.Free)

	timeBase := astiav.NewRational(1, v.FPS)
	codecContext.SetWidth(v.Width)
	codecContext.SetHeight(v.Height)
	codecContext.SetPixelFormat(astiav.PixelFormatYuv420P)
	codecContext.SetTimeBase(timeBase)
	codecContext.SetFramerate(astiav.NewRational(v.FPS, 1))
	codecContext.SetGopSize(v.GOPSize)

	options := astiav.NewDictionary()
	closer.Add(options.Free)
	options.Set("bf", "0", 0)
	options.Set("qmax", "4", 0)
	options.Set("sc_threshold", strconv.Itoa(1000000000), 0)
	if err := codecContext.Open(codec, options); err != nil {
		return fmt.Errorf("unable to open the encoder: %w", err)
	}
	if err := stream.CodecParameters().FromCodecContext(codecContext); err != nil {
		return fmt.Errorf("unable to copy the codec parameters: %w", err)
	}
	stream.SetTimeBase(timeBase)

	ioContext, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return fmt.Errorf("unable to open '%s' for writing: %w", path, err)
	}
	closer.AddWithError(ioContext.Close)
	formatContext.SetPb(ioContext)

	if err := formatContext.WriteHeader(nil); err != nil {
		return fmt.Errorf("unable to write the header: %w", err)
	}

	frame := astiav.AllocFrame()
	closer.Add(frame.Free)
	frame.SetWidth(v.Width)
	frame.SetHeight(v.Height)
	frame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := frame.AllocBuffer(0); err != nil {
		return fmt.Errorf("unable to allocate a frame buffer: %w", err)
	}

	packet := astiav.AllocPacket()
	closer.Add(packet.Free)

	lumaSize := v.Width * v.Height
	buf := make([]byte, lumaSize*3/2)
	for i := 0; i < v.NumFrames; i++ {
		for j := range buf {
			if j < lumaSize {
				buf[j] = Luma(i)
			} else {
				buf[j] = 128
			}
		}
		if err := frame.MakeWritable(); err != nil {
			return fmt.Errorf("unable to make the frame writable: %w", err)
		}
		if err := frame.Data().SetBytes(buf, 1); err != nil {
			return fmt.Errorf("unable to fill frame %d: %w", i, err)
		}
		frame.SetPts(int64(i))
		if err := encodeAndWrite(formatContext, stream, codecContext, frame, packet); err != nil {
			return fmt.Errorf("unable to encode frame %d: %w", i, err)
		}
	}
	if err := encodeAndWrite(formatContext, stream, codecContext, nil, packet); err != nil {
		return fmt.Errorf("unable to flush the encoder: %w", err)
	}

	if err := formatContext.WriteTrailer(); err != nil {
		return fmt.Errorf("unable to write the trailer: %w", err)
	}
	return nil
}

func encodeAndWrite(
	formatContext *astiav.FormatContext,
	stream *astiav.Stream,
	codecContext *astiav.CodecContext,
	frame *astiav.Frame,
	packet *astiav.Packet,
) error {
	if err := codecContext.SendFrame(frame); err != nil {
		return fmt.Errorf("unable to send the frame: %w", err)
	}
	for {
		err := codecContext.ReceivePacket(packet)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
			return nil
		default:
			return fmt.Errorf("unable to receive a packet: %w", err)
		}

		packet.SetStreamIndex(stream.Index())
		packet.RescaleTs(codecContext.TimeBase(), stream.TimeBase())
		err = formatContext.WriteInterleavedFrame(packet)
		packet.Unref()
		if err != nil {
			return fmt.Errorf("unable to write the packet: %w", err)
		}
	}
}
