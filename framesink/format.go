package framesink

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/tiff"
)

// Format is a lossless raster format frames are persisted in.
type Format int

const (
	FormatUndefined = Format(iota)
	FormatPNG
	FormatBMP
	FormatTIFF
	endOfFormat
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "<undefined>"
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("<unknown_format_%d>", int(f))
	}
}

func FormatFromString(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if s == "tif" {
		return FormatTIFF, nil
	}
	for f := FormatUndefined + 1; f < endOfFormat; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return FormatUndefined, fmt.Errorf("unknown image format '%s' (supported: png, bmp, tiff)", s)
}

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	v, err := FormatFromString(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string {
	return "format"
}

// Extension returns the file extension, without the leading dot.
func (f Format) Extension() string {
	return f.String()
}

// Encoder returns an encoder that preserves pixel values exactly.
func (f Format) Encoder() (imgio.Encoder, error) {
	switch f {
	case FormatPNG:
		return encodePNGUncompressed, nil
	case FormatBMP:
		return imgio.BMPEncoder(), nil
	case FormatTIFF:
		return encodeTIFFUncompressed, nil
	default:
		return nil, fmt.Errorf("no encoder for format %s", f)
	}
}

func encodePNGUncompressed(w io.Writer, img image.Image) error {
	enc := &png.Encoder{CompressionLevel: png.NoCompression}
	return enc.Encode(w, img)
}

func encodeTIFFUncompressed(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Uncompressed})
}
