package eq

import (
	"github.com/cwbudde/tabeq/dsp/filter/biquad"
	"github.com/cwbudde/tabeq/dsp/filter/design"
)

// Bank is the parameter state of all 13 bands. The zero value is not
// useful; construct with NewBank.
type Bank struct {
	bands [BandCount]Band
}

// NewBank returns a bank with every band at its defaults.
func NewBank() Bank {
	var b Bank
	for i := range b.bands {
		b.bands[i] = DefaultBand(i)
	}

	return b
}

// Band returns a copy of band i.
func (b *Bank) Band(i int) Band {
	return b.bands[i]
}

// Bands returns a copy of all bands.
func (b *Bank) Bands() [BandCount]Band {
	return b.bands
}

// Update carries a partial parameter change, keyed by band index.
// Indices absent from every map retain their current values; indices
// outside 0-12 are ignored.
type Update struct {
	GainDB map[int]float64
	FreqHz map[int]float64
	Q      map[int]float64
}

// Empty reports whether the update touches nothing.
func (u Update) Empty() bool {
	return len(u.GainDB) == 0 && len(u.FreqHz) == 0 && len(u.Q) == 0
}

// Apply merges the update into the bank (sparse merge, not replacement),
// clamping every written value. It returns the indices whose parameters
// changed, in ascending order, so callers know which filters to redesign.
func (b *Bank) Apply(u Update) []int {
	touched := make(map[int]bool, BandCount)

	for i, g := range u.GainDB {
		if i < 0 || i >= BandCount {
			continue
		}

		b.bands[i].GainDB = ClampGain(g)
		touched[i] = true
	}

	for i, f := range u.FreqHz {
		if i < 0 || i >= BandCount {
			continue
		}

		b.bands[i].FreqHz = ClampFrequency(f)
		touched[i] = true
	}

	for i, q := range u.Q {
		if i < 0 || i >= BandCount {
			continue
		}

		b.bands[i].BaseQ = ClampQ(q)
		touched[i] = true
	}

	out := make([]int, 0, len(touched))
	for i := 0; i < BandCount; i++ {
		if touched[i] {
			out = append(out, i)
		}
	}

	return out
}

// Coefficients designs the biquad for band i at the given sample rate,
// feeding the gain-coupled effective Q into the design equations.
// Passthrough bands always yield the unity biquad.
func (b *Bank) Coefficients(i int, sampleRate float64) biquad.Coefficients {
	band := b.bands[i]
	q := EffectiveQ(i, band.BaseQ, band.GainDB)

	switch BandKind(i) {
	case KindLowShelf:
		return design.LowShelf(band.FreqHz, band.GainDB, q, sampleRate)
	case KindHighShelf:
		return design.HighShelf(band.FreqHz, band.GainDB, q, sampleRate)
	case KindPeaking:
		return design.Peak(band.FreqHz, band.GainDB, q, sampleRate)
	default:
		return design.Passthrough()
	}
}

// AllCoefficients designs every band's biquad in index order.
func (b *Bank) AllCoefficients(sampleRate float64) []biquad.Coefficients {
	out := make([]biquad.Coefficients, BandCount)
	for i := range out {
		out[i] = b.Coefficients(i, sampleRate)
	}

	return out
}

// ResponseDB evaluates the bank's combined magnitude response in dB at
// each requested frequency. It sums the per-band responses of the same
// coefficients the live filters run, so a rendered curve matches the
// audible result exactly.
func (b *Bank) ResponseDB(freqs []float64, sampleRate float64) []float64 {
	coeffs := b.AllCoefficients(sampleRate)

	out := make([]float64, len(freqs))
	for j, f := range freqs {
		sum := 0.0
		for i := range coeffs {
			sum += coeffs[i].MagnitudeDB(f, sampleRate)
		}

		out[j] = sum
	}

	return out
}
