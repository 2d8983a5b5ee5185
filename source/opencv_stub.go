//go:build !with_cv
// +build !with_cv

package source

import (
	"context"
)

func openOpenCV(ctx context.Context, path string) (Source, error) {
	return nil, ErrBuiltWithoutOpenCV
}
