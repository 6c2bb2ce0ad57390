package eq

import (
	"math"

	"github.com/cwbudde/tabeq/dsp/core"
)

// BandCount is the number of filter bands in a bank.
const BandCount = 13

// CenterFrequencies is the fixed ascending center frequency table, one
// entry per band index.
var CenterFrequencies = [BandCount]float64{
	5, 10, 20, 40, 80, 160, 320, 640, 1280, 2560, 5120, 10240, 20480,
}

// Parameter ranges. Writes outside these are clamped, never rejected.
const (
	MinFrequencyHz = 1.0
	MaxFrequencyHz = 21500.0
	MinGainDB      = -30.0
	MaxGainDB      = 30.0
	MinQ           = 0.1
	MaxQ           = 2.0

	DefaultShelfQ   = 0.75
	DefaultPeakingQ = 0.3
)

// couplingRange is the gain magnitude at which a peaking band's coupling
// factor reaches 0.5 (its minimum within the legal gain range).
const couplingRange = 30.0

// Kind classifies a band by its filter role.
type Kind int

const (
	KindPassthrough Kind = iota
	KindLowShelf
	KindPeaking
	KindHighShelf
)

// BandKind returns the filter role of band index i.
func BandKind(i int) Kind {
	switch {
	case i < 2:
		return KindPassthrough
	case i == 2:
		return KindLowShelf
	case i == 12:
		return KindHighShelf
	default:
		return KindPeaking
	}
}

// IsShelf reports whether band i is a shelving band.
func IsShelf(i int) bool {
	return i == 2 || i == 12
}

// Band holds the user-facing parameters of one filter band. EffectiveQ is
// always derived from (BaseQ, GainDB), never stored.
type Band struct {
	FreqHz float64
	GainDB float64
	BaseQ  float64
}

// DefaultQ returns the default base Q for band index i.
func DefaultQ(i int) float64 {
	if IsShelf(i) {
		return DefaultShelfQ
	}

	return DefaultPeakingQ
}

// DefaultBand returns band i at its defaults: table frequency, zero gain,
// per-kind base Q.
func DefaultBand(i int) Band {
	return Band{
		FreqHz: CenterFrequencies[i],
		GainDB: 0,
		BaseQ:  DefaultQ(i),
	}
}

// ClampFrequency limits a frequency write to the legal range.
func ClampFrequency(hz float64) float64 {
	return core.Clamp(hz, MinFrequencyHz, MaxFrequencyHz)
}

// ClampGain limits a gain write to the legal range.
func ClampGain(db float64) float64 {
	return core.Clamp(db, MinGainDB, MaxGainDB)
}

// ClampQ limits a base-Q write to the legal range.
func ClampQ(q float64) float64 {
	return core.Clamp(q, MinQ, MaxQ)
}

// couplingFactor is the gain-dependent width multiplier for peaking bands.
// At 0 dB the band is widest (1.5x baseQ); toward +-30 dB it narrows to
// 0.5x baseQ, widening the skirt of large boosts and cuts.
func couplingFactor(gainDB float64) float64 {
	return 1.5 - math.Abs(gainDB)/couplingRange
}

// EffectiveQ derives the Q actually fed to the filter for band i.
// Shelving bands ignore gain; peaking bands couple width to gain.
func EffectiveQ(i int, baseQ, gainDB float64) float64 {
	if IsShelf(i) {
		return baseQ
	}

	return baseQ * couplingFactor(gainDB)
}

// BaseQFromEffective inverts [EffectiveQ]. When the coupling factor is zero
// or the division is otherwise non-finite, it falls back to the band's
// default base Q.
func BaseQFromEffective(i int, effectiveQ, gainDB float64) float64 {
	if IsShelf(i) {
		return effectiveQ
	}

	factor := couplingFactor(gainDB)
	base := effectiveQ / factor
	if factor == 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return DefaultQ(i)
	}

	return base
}
