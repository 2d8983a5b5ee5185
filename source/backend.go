package source

import (
	"context"
	"fmt"
	"strings"
)

type Backend int

const (
	BackendUndefined = Backend(iota)
	BackendLibAV
	BackendOpenCV
	endOfBackend
)

func (b Backend) String() string {
	switch b {
	case BackendUndefined:
		return "<undefined>"
	case BackendLibAV:
		return "libav"
	case BackendOpenCV:
		return "opencv"
	default:
		return fmt.Sprintf("<unknown_backend_%d>", int(b))
	}
}

func BackendFromString(s string) (Backend, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for b := BackendUndefined + 1; b < endOfBackend; b++ {
		if b.String() == s {
			return b, nil
		}
	}
	switch s {
	case "ffmpeg", "astiav":
		return BackendLibAV, nil
	case "cv", "gocv":
		return BackendOpenCV, nil
	}
	return BackendUndefined, fmt.Errorf("unknown backend '%s'", s)
}

// Set implements pflag.Value.
func (b *Backend) Set(s string) error {
	v, err := BackendFromString(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Type implements pflag.Value.
func (b *Backend) Type() string {
	return "backend"
}

func (b Backend) Opener() Opener {
	switch b {
	case BackendOpenCV:
		return openOpenCV
	default:
		return openLibAV
	}
}

func openLibAV(ctx context.Context, path string) (Source, error) {
	s, err := OpenLibAV(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
