package host

import (
	"sync"

	"github.com/cwbudde/tabeq/dsp/filter/biquad"
	"github.com/cwbudde/tabeq/engine"
	"github.com/cwbudde/tabeq/engine/analyzer"
	"github.com/cwbudde/tabeq/engine/capture"
	"github.com/cwbudde/tabeq/eq"
)

// graph is one source's signal chain:
//
//	capture -> band filters (13 in series) -> master gain -> sink
//	                                      \-> analyzer tap
//
// The render pump and the host command loop both touch the chain, so
// filter and gain state is guarded by mu.
type graph struct {
	src        engine.SourceID
	handle     capture.Handle
	stream     capture.Stream
	ctx        *renderContext
	an         *analyzer.Analyzer
	sink       Sink
	sampleRate float64
	blockSize  int

	mu         sync.Mutex
	bank       eq.Bank
	chain      *biquad.Chain
	masterGain float64
}

func newGraph(src engine.SourceID, handle capture.Handle, stream capture.Stream,
	ctx *renderContext, an *analyzer.Analyzer, sink Sink, sampleRate float64, blockSize int,
) *graph {
	bank := eq.NewBank()

	return &graph{
		src:        src,
		handle:     handle,
		stream:     stream,
		ctx:        ctx,
		an:         an,
		sink:       sink,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		bank:       bank,
		chain:      biquad.NewChain(bank.AllCoefficients(sampleRate)),
		masterGain: 1,
	}
}

// pump is the render loop: read a capture block, run it through the band
// filters and master gain, feed the analyzer tap and the sink. It exits
// when the context quits or the capture stream stops.
func (g *graph) pump(quit <-chan struct{}) {
	buf := make([]float64, g.blockSize)

	for {
		select {
		case <-quit:
			return
		default:
		}

		if err := g.stream.ReadBlock(buf); err != nil {
			return
		}

		g.mu.Lock()
		g.chain.ProcessBlock(buf)
		gain := g.masterGain
		g.mu.Unlock()

		if gain != 1 {
			for i := range buf {
				buf[i] *= gain
			}
		}

		g.an.Push(buf)
		_ = g.sink.WriteBlock(buf)
	}
}

// applyUpdate merges a sparse parameter update and redesigns only the
// touched filters, preserving each section's delay-line state.
func (g *graph) applyUpdate(u eq.Update) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, i := range g.bank.Apply(u) {
		g.chain.SetSectionCoefficients(i, g.bank.Coefficients(i, g.sampleRate))
	}
}

func (g *graph) bands() eq.Bank {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.bank
}

func (g *graph) setMasterGain(v float64) {
	if v < 0 {
		v = 0
	}

	g.mu.Lock()
	g.masterGain = v
	g.mu.Unlock()
}

func (g *graph) getMasterGain() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.masterGain
}

// teardown runs the full destruction sequence: suspend the pump
// (disconnect), stop every capture track (release the grant), close the
// context. Every step runs regardless of earlier failures.
func (g *graph) teardown() error {
	g.ctx.Suspend()

	for _, t := range g.stream.Tracks() {
		t.Stop()
	}

	return g.ctx.Close()
}
