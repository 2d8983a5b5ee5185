// closure_signaler.go tracks the closed state of a resource and guarantees
// that its release routine runs at most once.

// Package closuresignaler provides a utility for signaling the closure of a resource.
package closuresignaler

import (
	"context"
	"sync"

	"github.com/xaionaro-go/avframesplit/logger"
)

type ClosureSignaler struct {
	closeOnce  sync.Once
	c          chan struct{}
	releaseErr error
}

func New() *ClosureSignaler {
	return &ClosureSignaler{
		c: make(chan struct{}),
	}
}

// Close marks the resource as closed without releasing anything.
func (c *ClosureSignaler) Close(ctx context.Context) {
	_ = c.CloseWith(ctx, nil)
}

// CloseWith marks the resource as closed and calls release exactly once,
// no matter how many times CloseWith (or Close) is called. Every call
// returns the error of that single release.
func (c *ClosureSignaler) CloseWith(
	ctx context.Context,
	release func() error,
) error {
	logger.Debugf(ctx, "CloseWith")
	defer func() { logger.Debugf(ctx, "/CloseWith") }()
	c.closeOnce.Do(func() {
		defer close(c.c)
		if release != nil {
			c.releaseErr = release()
		}
	})
	return c.releaseErr
}

func (c *ClosureSignaler) IsClosed() bool {
	select {
	case <-c.c:
		return true
	default:
		return false
	}
}
