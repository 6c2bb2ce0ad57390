package capture

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/tabeq/dsp/core"
	"github.com/cwbudde/tabeq/engine"
)

// SynthGrantor is an in-memory [Grantor] and [Opener] producing synthetic
// per-source test tones. It stands in for the host environment in the
// loopback daemon mode and in tests: handles are uuid tokens, single-use,
// with an optional expiry.
type SynthGrantor struct {
	cfg      core.ProcessorConfig
	ttl      time.Duration
	realtime bool

	mu      sync.Mutex
	pending map[string]Handle
}

// SynthOption configures a SynthGrantor.
type SynthOption func(*SynthGrantor)

// WithTTL sets a handle expiry. Zero (the default) means handles never
// expire.
func WithTTL(d time.Duration) SynthOption {
	return func(g *SynthGrantor) { g.ttl = d }
}

// WithRealtime paces ReadBlock to wall-clock block duration, so a pump
// loop consumes CPU like a real capture would.
func WithRealtime() SynthOption {
	return func(g *SynthGrantor) { g.realtime = true }
}

// NewSynthGrantor creates a grantor with the given processing config.
func NewSynthGrantor(coreOpts []core.ProcessorOption, opts ...SynthOption) *SynthGrantor {
	g := &SynthGrantor{
		cfg:     core.ApplyProcessorOptions(coreOpts...),
		pending: make(map[string]Handle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Acquire issues a fresh single-use handle for src.
func (g *SynthGrantor) Acquire(_ context.Context, src engine.SourceID) (Handle, error) {
	if src == "" {
		return Handle{}, fmt.Errorf("%w: empty source id", engine.ErrCaptureDenied)
	}

	h := Handle{
		Token:    uuid.NewString(),
		Source:   src,
		IssuedAt: time.Now(),
	}

	g.mu.Lock()
	g.pending[h.Token] = h
	g.mu.Unlock()

	return h, nil
}

// Open consumes the handle and returns a tone stream for its source.
func (g *SynthGrantor) Open(h Handle) (Stream, error) {
	g.mu.Lock()
	issued, ok := g.pending[h.Token]
	if ok {
		delete(g.pending, h.Token)
	}
	g.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown or consumed handle", engine.ErrCaptureDenied)
	}

	if g.ttl > 0 && time.Since(issued.IssuedAt) > g.ttl {
		return nil, fmt.Errorf("%w: handle expired", engine.ErrCaptureDenied)
	}

	s := &synthStream{
		freqHz:     toneFrequency(issued.Source),
		sampleRate: g.cfg.SampleRate,
		realtime:   g.realtime,
		track:      &Track{},
	}

	return s, nil
}

// toneFrequency derives a stable audible frequency from the source id so
// distinct sources are distinguishable by ear.
func toneFrequency(src engine.SourceID) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(src))

	return 110 + float64(h.Sum32()%32)*55
}

type synthStream struct {
	freqHz     float64
	sampleRate float64
	realtime   bool
	phase      float64
	track      *Track
}

func (s *synthStream) ReadBlock(buf []float64) error {
	if s.track.Stopped() {
		return ErrStreamStopped
	}

	step := 2 * math.Pi * s.freqHz / s.sampleRate
	for i := range buf {
		buf[i] = 0.5 * math.Sin(s.phase)
		s.phase += step
	}

	if s.phase > 2*math.Pi {
		s.phase = math.Mod(s.phase, 2*math.Pi)
	}

	if s.realtime {
		time.Sleep(time.Duration(float64(len(buf)) / s.sampleRate * float64(time.Second)))
	}

	return nil
}

func (s *synthStream) Tracks() []*Track {
	return []*Track{s.track}
}
