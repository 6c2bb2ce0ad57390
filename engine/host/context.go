package host

import (
	"fmt"
	"sync"

	"github.com/cwbudde/tabeq/dsp/core"
	"github.com/cwbudde/tabeq/engine"
)

// renderContext is a graph's audio processing context. It is created
// suspended and must be resumed explicitly; a context that silently
// stays suspended would produce a silent session with no error.
type renderContext struct {
	mu        sync.Mutex
	running   bool
	suspended bool
	closed    bool
	quit      chan struct{}
	done      chan struct{}
}

func newRenderContext(cfg core.ProcessorConfig) (*renderContext, error) {
	if cfg.SampleRate <= 0 || cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: invalid processing config (rate %v, block %d)",
			engine.ErrContextError, cfg.SampleRate, cfg.BlockSize)
	}

	return &renderContext{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Resume starts the render pump. Resuming a closed context fails;
// resuming a running one is a no-op.
func (c *renderContext) Resume(pump func(quit <-chan struct{})) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.suspended {
		return fmt.Errorf("%w: resume after suspend or close", engine.ErrContextError)
	}

	if c.running {
		return nil
	}

	c.running = true

	go func() {
		defer close(c.done)
		pump(c.quit)
	}()

	return nil
}

// Suspend stops the render pump without closing the context. This is the
// "disconnect the nodes" step of teardown: after Suspend returns, nothing
// touches the graph's filter chain anymore.
func (c *renderContext) Suspend() {
	c.mu.Lock()
	running := c.running
	if running {
		c.running = false
		close(c.quit)
	}
	c.suspended = true
	c.mu.Unlock()

	if running {
		<-c.done
	}
}

// Close suspends the pump (if needed) and marks the context closed.
// Closing twice is a no-op.
func (c *renderContext) Close() error {
	c.Suspend()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	return nil
}
