// Package analyzer provides the per-graph spectrum tap: a streaming FFT
// analyzer fed from the post-filter signal, read out as byte-scaled
// frequency bins.
package analyzer

import (
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/tabeq/dsp/core"
	"github.com/cwbudde/tabeq/dsp/window"
)

const (
	// dB range mapped onto the 0-255 byte scale.
	minDB = -100.0
	maxDB = -30.0

	defaultFFTSize   = 2048
	defaultSmoothing = 0.8

	eps = 1e-12
)

// Option configures an Analyzer.
type Option func(*config)

type config struct {
	fftSize   int
	smoothing float64
}

// WithFFTSize sets the FFT length. Must be a power of two in [256, 8192];
// anything else falls back to the default 2048.
func WithFFTSize(n int) Option {
	return func(c *config) { c.fftSize = n }
}

// WithSmoothing sets the exponential bin smoothing in [0, 0.95].
func WithSmoothing(s float64) Option {
	return func(c *config) { c.smoothing = s }
}

// Analyzer accumulates samples into a ring buffer and recomputes a
// smoothed magnitude spectrum every half-FFT hop. Push is called from the
// render pump; snapshot reads are lock-protected copies cheap enough for
// continuous polling.
type Analyzer struct {
	mu sync.Mutex

	fftSize    int
	hopSize    int
	smoothing  float64
	win        []float64
	winGain    float64
	plan       *algofft.Plan[complex128]
	ring       []float64
	write      int
	filled     int
	toHop      int
	frame      []float64
	input      []complex128
	output     []complex128
	scratchRe  []float64
	scratchIm  []float64
	magnitudes []float64
	db         []float64
	ready      bool
}

// New creates an analyzer.
func New(opts ...Option) (*Analyzer, error) {
	cfg := config{fftSize: defaultFFTSize, smoothing: defaultSmoothing}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	switch cfg.fftSize {
	case 256, 512, 1024, 2048, 4096, 8192:
	default:
		cfg.fftSize = defaultFFTSize
	}

	cfg.smoothing = core.Clamp(cfg.smoothing, 0, 0.95)

	win := window.Generate(window.TypeHann, cfg.fftSize, window.WithPeriodic())

	winGain, err := window.CoherentGain(win)
	if err != nil {
		return nil, fmt.Errorf("analyzer window: %w", err)
	}

	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer fft plan: %w", err)
	}

	bins := cfg.fftSize/2 + 1

	a := &Analyzer{
		fftSize:    cfg.fftSize,
		hopSize:    cfg.fftSize / 2,
		smoothing:  cfg.smoothing,
		win:        win,
		winGain:    winGain,
		plan:       plan,
		ring:       make([]float64, cfg.fftSize),
		frame:      make([]float64, cfg.fftSize),
		input:      make([]complex128, cfg.fftSize),
		output:     make([]complex128, cfg.fftSize),
		scratchRe:  make([]float64, bins),
		scratchIm:  make([]float64, bins),
		magnitudes: make([]float64, bins),
		db:         make([]float64, bins),
	}

	for i := range a.db {
		a.db[i] = minDB
	}

	return a, nil
}

// BinCount returns the number of spectrum bins in a snapshot.
func (a *Analyzer) BinCount() int {
	return len(a.db)
}

// Push feeds a block of post-filter samples into the ring buffer,
// recomputing the spectrum frame whenever a full hop has accumulated.
func (a *Analyzer) Push(block []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, x := range block {
		a.ring[a.write] = x

		a.write++
		if a.write >= a.fftSize {
			a.write = 0
		}

		if a.filled < a.fftSize {
			a.filled++
		}

		a.toHop++
		if a.filled >= a.fftSize && a.toHop >= a.hopSize {
			a.toHop = 0
			a.updateFrame()
		}
	}
}

// ByteBins writes the current snapshot into dst on the 0-255 scale,
// reallocating when dst is too small, and returns the slice. The mapping
// places minDB at 0 and maxDB at 255, the conventional byte frequency
// scale of browser analyzers.
func (a *Analyzer) ByteBins(dst []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cap(dst) < len(a.db) {
		dst = make([]byte, len(a.db))
	}
	dst = dst[:len(a.db)]

	for i, db := range a.db {
		v := (db - minDB) / (maxDB - minDB) * 255
		dst[i] = byte(core.Clamp(math.Round(v), 0, 255))
	}

	return dst
}

// DBBins returns a copy of the current smoothed dB spectrum.
func (a *Analyzer) DBBins() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]float64(nil), a.db...)
}

// Reset clears the ring buffer and snapshot.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	core.Zero(a.ring)
	a.write, a.filled, a.toHop = 0, 0, 0
	a.ready = false

	for i := range a.db {
		a.db[i] = minDB
	}
}

// updateFrame recomputes the dB spectrum from the ring contents.
// Caller holds a.mu.
func (a *Analyzer) updateFrame() {
	read := a.write
	for i := 0; i < a.fftSize; i++ {
		a.frame[i] = a.ring[read]

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	if err := window.ApplyCoefficientsInPlace(a.frame, a.win); err != nil {
		return
	}

	for i, s := range a.frame {
		a.input[i] = complex(s, 0)
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return
	}

	for k := range a.scratchRe {
		a.scratchRe[k] = real(a.output[k])
		a.scratchIm[k] = imag(a.output[k])
	}
	vecmath.Magnitude(a.magnitudes, a.scratchRe, a.scratchIm)

	norm := float64(a.fftSize) * math.Max(a.winGain, eps)

	last := len(a.db) - 1
	for k := 0; k <= last; k++ {
		mag := a.magnitudes[k] / norm
		if k > 0 && k < last {
			mag *= 2
		}

		valDB := 20 * math.Log10(math.Max(eps, mag))
		if valDB < minDB {
			valDB = minDB
		}

		if !a.ready {
			a.db[k] = valDB
			continue
		}

		a.db[k] = a.smoothing*a.db[k] + (1-a.smoothing)*valDB
	}

	a.ready = true
}
