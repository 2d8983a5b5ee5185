// Package framesink persists decoded frames as image files.
package framesink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/xaionaro-go/avframesplit/logger"
)

const (
	DefaultIndexWidth = 4
	fileNamePrefix    = "frame_"
)

// Directory writes frames into a directory as "frame_<index>.<ext>".
type Directory struct {
	Path       string
	Format     Format
	IndexWidth int

	encoder    imgio.Encoder
	createFile func(path string) (io.WriteCloser, error)
}

func NewDirectory(
	path string,
	format Format,
	indexWidth int,
) (*Directory, error) {
	if format == FormatUndefined {
		format = FormatPNG
	}
	if indexWidth < 1 {
		indexWidth = DefaultIndexWidth
	}
	encoder, err := format.Encoder()
	if err != nil {
		return nil, err
	}
	return &Directory{
		Path:       path,
		Format:     format,
		IndexWidth: indexWidth,
		encoder:    encoder,
		createFile: createFile,
	}, nil
}

func (d *Directory) String() string {
	return fmt.Sprintf("Directory(%s, %s)", d.Path, d.Format)
}

// FileName returns the base name of the file for frame #index; indices
// wider than IndexWidth are written in full.
func (d *Directory) FileName(index int64) string {
	return fmt.Sprintf("%s%0*d.%s", fileNamePrefix, d.IndexWidth, index, d.Format.Extension())
}

func (d *Directory) FilePath(index int64) string {
	return filepath.Join(d.Path, d.FileName(index))
}

// WriteFrame encodes img into the file of frame #index, replacing the
// file if it exists. It returns the path and the resulting file size. A
// failure to flush or close the file is a failure to write the frame.
func (d *Directory) WriteFrame(
	ctx context.Context,
	index int64,
	img image.Image,
) (_ string, _ int64, _err error) {
	path := d.FilePath(index)
	logger.Tracef(ctx, "WriteFrame(ctx, %d): %s", index, path)
	defer func() { logger.Tracef(ctx, "/WriteFrame(ctx, %d): %s: %v", index, path, _err) }()

	f, err := d.createFile(path)
	if err != nil {
		return path, 0, writeError(index, path, err)
	}

	w := &countingWriter{Writer: f}
	bw := bufio.NewWriter(w)
	err = d.encoder(bw, img)
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return path, w.n, writeError(index, path, err)
	}
	return path, w.n, nil
}

func writeError(index int64, path string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("unable to write frame %d: %w", index, err)
	}
	return fmt.Errorf("unable to write frame %d to '%s': %w", index, path, err)
}

type countingWriter struct {
	io.Writer
	n int64
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	w.n += int64(n)
	return n, err
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
