// Package testmedia generates small videos for tests.
package testmedia

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// Y4M describes a YUV4MPEG2 (4:2:0) video where every frame is flat gray.
type Y4M struct {
	Width     int
	Height    int
	FPS       int
	NumFrames int
}

// Luma returns the luma value used for frame #index; it grows with the
// index so tests can tell frames apart.
func Luma(index int) byte {
	return byte(16 + (index*7)%220)
}

func (v Y4M) Luma(index int) byte {
	return Luma(index)
}

func (v Y4M) WriteFile(path string) error {
	if v.Width%2 != 0 || v.Height%2 != 0 {
		return fmt.Errorf("the resolution must be even, got %dx%d", v.Width, v.Height)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "YUV4MPEG2 W%d H%d F%d:1 Ip A1:1 C420jpeg\n", v.Width, v.Height, v.FPS)
	chroma := bytes.Repeat([]byte{128}, (v.Width/2)*(v.Height/2)*2)
	for i := 0; i < v.NumFrames; i++ {
		w.WriteString("FRAME\n")
		w.Write(bytes.Repeat([]byte{v.Luma(i)}, v.Width*v.Height))
		w.Write(chroma)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return f.Close()
}

// WriteGarbage writes size bytes that no demuxer should recognize.
func WriteGarbage(path string, size int) error {
	return os.WriteFile(path, bytes.Repeat([]byte{0x00, 0x13, 0x37, 0x42}, size/4+1)[:size], 0644)
}
