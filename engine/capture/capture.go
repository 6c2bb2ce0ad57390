// Package capture models the host environment's capture grant: short-lived
// handles that permit reading one source's audio, and the streams opened
// from them.
package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/tabeq/engine"
)

// ErrStreamStopped is returned by ReadBlock once every track of the
// stream has been stopped.
var ErrStreamStopped = errors.New("capture stream stopped")

// Handle is a short-lived token granting permission to read a source's
// audio. A handle is single-use: opening a stream consumes it.
type Handle struct {
	Token    string
	Source   engine.SourceID
	IssuedAt time.Time
}

// Zero reports whether the handle carries no grant.
func (h Handle) Zero() bool {
	return h.Token == ""
}

// Grantor issues fresh capture handles for a source.
type Grantor interface {
	Acquire(ctx context.Context, src engine.SourceID) (Handle, error)
}

// Opener turns a granted handle into a live stream. An invalid, expired
// or already-consumed handle yields [engine.ErrCaptureDenied].
type Opener interface {
	Open(h Handle) (Stream, error)
}

// Stream delivers a source's audio as fixed-size blocks of float64
// samples in [-1, 1].
type Stream interface {
	// ReadBlock fills buf with the next samples. It returns
	// ErrStreamStopped once the stream's tracks have been stopped.
	ReadBlock(buf []float64) error

	// Tracks returns the underlying capture tracks. Stopping every track
	// releases the capture grant; closing a processing context alone
	// does not.
	Tracks() []*Track
}

// Track is one constituent track of a capture stream.
type Track struct {
	stopped atomic.Bool

	mu     sync.Mutex
	onStop func()
}

// Stop halts the track and releases its share of the capture grant.
// Stopping an already-stopped track is a no-op.
func (t *Track) Stop() {
	if t.stopped.Swap(true) {
		return
	}

	t.mu.Lock()
	fn := t.onStop
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stopped reports whether the track has been stopped.
func (t *Track) Stopped() bool {
	return t.stopped.Load()
}
