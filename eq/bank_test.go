package eq

import (
	"math"
	"testing"

	"github.com/cwbudde/tabeq/dsp/filter/biquad"
)

func TestNewBank_Defaults(t *testing.T) {
	b := NewBank()
	for i := 0; i < BandCount; i++ {
		if b.Band(i) != DefaultBand(i) {
			t.Fatalf("band %d not at defaults: %+v", i, b.Band(i))
		}
	}
}

func TestApply_SparseMerge(t *testing.T) {
	b := NewBank()
	before := b.Bands()

	touched := b.Apply(Update{GainDB: map[int]float64{5: 12}})
	if len(touched) != 1 || touched[0] != 5 {
		t.Fatalf("touched = %v, want [5]", touched)
	}

	for i := 0; i < BandCount; i++ {
		got := b.Band(i)
		if i == 5 {
			if got.GainDB != 12 {
				t.Fatalf("band 5 gain = %v, want 12", got.GainDB)
			}
			if got.FreqHz != before[5].FreqHz || got.BaseQ != before[5].BaseQ {
				t.Fatalf("band 5 freq/q changed: %+v", got)
			}
			continue
		}
		if got != before[i] {
			t.Fatalf("band %d changed by sparse update: %+v -> %+v", i, before[i], got)
		}
	}
}

func TestApply_ClampsSilently(t *testing.T) {
	b := NewBank()
	b.Apply(Update{
		GainDB: map[int]float64{3: 99},
		FreqHz: map[int]float64{3: 0.001},
		Q:      map[int]float64{3: 50},
	})

	got := b.Band(3)
	if got.GainDB != MaxGainDB || got.FreqHz != MinFrequencyHz || got.BaseQ != MaxQ {
		t.Fatalf("clamping failed: %+v", got)
	}
}

func TestApply_IgnoresOutOfRangeIndices(t *testing.T) {
	b := NewBank()
	touched := b.Apply(Update{GainDB: map[int]float64{-1: 5, 13: 5, 99: 5}})
	if len(touched) != 0 {
		t.Fatalf("touched = %v, want none", touched)
	}
	fresh := NewBank()
	if b.Bands() != fresh.Bands() {
		t.Fatal("out-of-range update modified the bank")
	}
}

func TestApply_MultipleFieldsSameIndex(t *testing.T) {
	b := NewBank()
	touched := b.Apply(Update{
		GainDB: map[int]float64{2: 5},
		FreqHz: map[int]float64{2: 120},
	})
	if len(touched) != 1 || touched[0] != 2 {
		t.Fatalf("touched = %v, want [2]", touched)
	}

	got := b.Band(2)
	if got.GainDB != 5 || got.FreqHz != 120 {
		t.Fatalf("band 2 = %+v", got)
	}
	if got.BaseQ != DefaultShelfQ {
		t.Fatalf("band 2 baseQ changed: %v", got.BaseQ)
	}
}

func TestCoefficients_PassthroughBands(t *testing.T) {
	b := NewBank()
	b.Apply(Update{GainDB: map[int]float64{0: 30, 1: -30}})

	for _, i := range []int{0, 1} {
		if got := b.Coefficients(i, 48000); got != biquad.Unity() {
			t.Fatalf("band %d coefficients = %+v, want unity", i, got)
		}
	}
}

func TestCoefficients_PeakingCenterGain(t *testing.T) {
	b := NewBank()
	b.Apply(Update{GainDB: map[int]float64{7: 9}})

	c := b.Coefficients(7, 48000)
	got := c.MagnitudeDB(b.Band(7).FreqHz, 48000)
	if math.Abs(got-9) > 0.1 {
		t.Fatalf("center magnitude = %v dB, want ~9", got)
	}
}

func TestCoefficients_ZeroGainBandsNearFlat(t *testing.T) {
	b := NewBank()
	for i := 0; i < BandCount; i++ {
		c := b.Coefficients(i, 48000)
		for _, f := range []float64{20, 1000, 18000} {
			if got := c.MagnitudeDB(f, 48000); math.Abs(got) > 1e-6 {
				t.Fatalf("band %d at %v Hz: %v dB, want 0", i, f, got)
			}
		}
	}
}

func TestResponseDB_MatchesCoefficientSum(t *testing.T) {
	b := NewBank()
	b.Apply(Update{GainDB: map[int]float64{2: 6, 7: -12, 12: 3}})

	freqs := []float64{10, 100, 640, 2560, 20000}
	got := b.ResponseDB(freqs, 48000)

	coeffs := b.AllCoefficients(48000)
	for j, f := range freqs {
		want := 0.0
		for i := range coeffs {
			want += coeffs[i].MagnitudeDB(f, 48000)
		}
		if math.Abs(got[j]-want) > 1e-12 {
			t.Fatalf("freq %v: ResponseDB %v, sum %v", f, got[j], want)
		}
	}
}
