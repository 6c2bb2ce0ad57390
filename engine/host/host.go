package host

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cwbudde/tabeq/dsp/core"
	"github.com/cwbudde/tabeq/engine"
	"github.com/cwbudde/tabeq/engine/analyzer"
	"github.com/cwbudde/tabeq/engine/capture"
	"github.com/cwbudde/tabeq/eq"
)

// Sink receives processed output blocks.
type Sink interface {
	WriteBlock(buf []float64) error
}

// Discard is a Sink that drops every block. It stands in for the real
// output device in loopback and test setups.
type Discard struct{}

// WriteBlock drops the block.
func (Discard) WriteBlock([]float64) error { return nil }

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// WithSink sets the output sink shared by all graphs. Default discards.
func WithSink(s Sink) Option {
	return func(h *Host) {
		if s != nil {
			h.sink = s
		}
	}
}

// WithAnalyzerOptions forwards options to each graph's spectrum analyzer.
func WithAnalyzerOptions(opts ...analyzer.Option) Option {
	return func(h *Host) {
		h.analyzerOpts = opts
	}
}

// command is one unit of work executed on the host loop.
type command struct {
	apply func()
	err   error
	done  chan struct{}
}

// Host owns the audio graphs, keyed by source id. All access goes
// through the command loop; the graphs map is touched by no other
// goroutine.
type Host struct {
	cfg          core.ProcessorConfig
	opener       capture.Opener
	sink         Sink
	log          *slog.Logger
	analyzerOpts []analyzer.Option

	cmds chan *command
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once

	graphs map[engine.SourceID]*graph
}

// New creates a host and starts its command loop.
func New(opener capture.Opener, coreOpts []core.ProcessorOption, opts ...Option) *Host {
	h := &Host{
		cfg:    core.ApplyProcessorOptions(coreOpts...),
		opener: opener,
		sink:   Discard{},
		log:    slog.Default(),
		cmds:   make(chan *command),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		graphs: make(map[engine.SourceID]*graph),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	go h.loop()

	return h
}

func (h *Host) loop() {
	defer close(h.done)

	for {
		select {
		case cmd := <-h.cmds:
			cmd.apply()
			close(cmd.done)
		case <-h.quit:
			// Reject anything that slipped into the channel after Close.
			for {
				select {
				case cmd := <-h.cmds:
					cmd.err = engine.ErrHostClosed
					close(cmd.done)
				default:
					return
				}
			}
		}
	}
}

// do runs fn on the command loop and waits for it. Commands concerning
// the same or different sources are all serialized here; per-source
// ordering (a destroy queued behind an in-flight create) follows from
// the single loop.
func (h *Host) do(ctx context.Context, fn func()) error {
	cmd := &command{apply: fn, done: make(chan struct{})}

	select {
	case h.cmds <- cmd:
	case <-h.quit:
		return engine.ErrHostClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-cmd.done

	return cmd.err
}

// Create builds the audio graph for src from a granted capture handle.
// A second create for an existing id fails with engine.ErrAlreadyActive,
// which callers treat as idempotent success.
func (h *Host) Create(ctx context.Context, src engine.SourceID, handle capture.Handle) error {
	var cmdErr error

	err := h.do(ctx, func() {
		cmdErr = h.createGraph(src, handle)
	})
	if err != nil {
		return err
	}

	return cmdErr
}

// createGraph runs on the loop goroutine.
func (h *Host) createGraph(src engine.SourceID, handle capture.Handle) error {
	if _, ok := h.graphs[src]; ok {
		return fmt.Errorf("%w: %s", engine.ErrAlreadyActive, src)
	}

	rc, err := newRenderContext(h.cfg)
	if err != nil {
		return err
	}

	stream, err := h.opener.Open(handle)
	if err != nil {
		// Partial teardown: the context exists but nothing else does.
		_ = rc.Close()
		return err
	}

	an, err := analyzer.New(h.analyzerOpts...)
	if err != nil {
		for _, t := range stream.Tracks() {
			t.Stop()
		}
		_ = rc.Close()

		return fmt.Errorf("%w: %v", engine.ErrContextError, err)
	}

	g := newGraph(src, handle, stream, rc, an, h.sink, h.cfg.SampleRate, h.cfg.BlockSize)

	// The context was created suspended; resume it explicitly so the
	// graph never sits silently idle.
	if err := rc.Resume(g.pump); err != nil {
		_ = g.teardown()
		return err
	}

	h.graphs[src] = g
	h.log.Debug("graph created", "source", src, "handle", handle.Token)

	return nil
}

// UpdateParameters merges a sparse band update into src's live graph.
func (h *Host) UpdateParameters(ctx context.Context, src engine.SourceID, u eq.Update) error {
	var cmdErr error

	err := h.do(ctx, func() {
		g, ok := h.graphs[src]
		if !ok {
			cmdErr = fmt.Errorf("%w: %s", engine.ErrNotFound, src)
			return
		}

		g.applyUpdate(u)
	})
	if err != nil {
		return err
	}

	return cmdErr
}

// SetMasterGain sets src's post-filter gain scalar. Negative values
// clamp to zero.
func (h *Host) SetMasterGain(src engine.SourceID, v float64) error {
	var cmdErr error

	err := h.do(context.Background(), func() {
		g, ok := h.graphs[src]
		if !ok {
			cmdErr = fmt.Errorf("%w: %s", engine.ErrNotFound, src)
			return
		}

		g.setMasterGain(v)
	})
	if err != nil {
		return err
	}

	return cmdErr
}

// GetMasterGain returns src's master gain, or the stable default 1.0
// when no graph exists. It never fails.
func (h *Host) GetMasterGain(src engine.SourceID) float64 {
	gain := 1.0

	_ = h.do(context.Background(), func() {
		if g, ok := h.graphs[src]; ok {
			gain = g.getMasterGain()
		}
	})

	return gain
}

// Bands returns a snapshot of src's band parameters.
func (h *Host) Bands(src engine.SourceID) (eq.Bank, error) {
	var (
		bank   eq.Bank
		cmdErr error
	)

	err := h.do(context.Background(), func() {
		g, ok := h.graphs[src]
		if !ok {
			cmdErr = fmt.Errorf("%w: %s", engine.ErrNotFound, src)
			return
		}

		bank = g.bands()
	})
	if err != nil {
		return eq.Bank{}, err
	}
	if cmdErr != nil {
		return eq.Bank{}, cmdErr
	}

	return bank, nil
}

// ReadSpectrum returns the current byte-scaled spectrum snapshot for src.
func (h *Host) ReadSpectrum(src engine.SourceID) (engine.Spectrum, error) {
	var (
		spec   engine.Spectrum
		cmdErr error
	)

	err := h.do(context.Background(), func() {
		g, ok := h.graphs[src]
		if !ok {
			cmdErr = fmt.Errorf("%w: %s", engine.ErrNotFound, src)
			return
		}

		spec = engine.Spectrum{
			Bins:     g.an.ByteBins(nil),
			BinCount: g.an.BinCount(),
		}
	})
	if err != nil {
		return engine.Spectrum{}, err
	}
	if cmdErr != nil {
		return engine.Spectrum{}, cmdErr
	}

	return spec, nil
}

// Destroy tears down src's graph: disconnect, stop capture tracks, close
// the context, remove the entry. Teardown failures are logged, never
// fatal, and the entry is always removed.
func (h *Host) Destroy(src engine.SourceID) error {
	var cmdErr error

	err := h.do(context.Background(), func() {
		g, ok := h.graphs[src]
		if !ok {
			cmdErr = fmt.Errorf("%w: %s", engine.ErrNotFound, src)
			return
		}

		if err := g.teardown(); err != nil {
			h.log.Warn("graph teardown incomplete", "source", src, "error", err)
		}

		delete(h.graphs, src)
		h.log.Debug("graph destroyed", "source", src)
	})
	if err != nil {
		return err
	}

	return cmdErr
}

// ListActive returns the ids of all live graphs in ascending order.
// This set is the ground truth other components rehydrate from.
func (h *Host) ListActive() []engine.SourceID {
	var ids []engine.SourceID

	_ = h.do(context.Background(), func() {
		ids = make([]engine.SourceID, 0, len(h.graphs))
		for src := range h.graphs {
			ids = append(ids, src)
		}
	})

	slices.Sort(ids)

	return ids
}

// ListActiveWithHandles returns every live graph's id and capture handle.
func (h *Host) ListActiveWithHandles() map[engine.SourceID]capture.Handle {
	var out map[engine.SourceID]capture.Handle

	_ = h.do(context.Background(), func() {
		out = make(map[engine.SourceID]capture.Handle, len(h.graphs))
		for src, g := range h.graphs {
			out[src] = g.handle
		}
	})

	return out
}

// Close destroys all graphs and stops the command loop. Safe to call
// more than once.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		_ = h.do(context.Background(), func() {
			for src, g := range h.graphs {
				if err := g.teardown(); err != nil {
					h.log.Warn("graph teardown incomplete", "source", src, "error", err)
				}

				delete(h.graphs, src)
			}
		})

		close(h.quit)
		<-h.done
	})

	return nil
}
