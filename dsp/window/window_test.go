package window

import (
	"math"
	"testing"

	"github.com/cwbudde/tabeq/internal/testutil"
)

func TestGenerate_HannEndpoints(t *testing.T) {
	w := Generate(TypeHann, 65)
	if len(w) != 65 {
		t.Fatalf("length = %d, want 65", len(w))
	}
	if math.Abs(w[0]) > 1e-12 || math.Abs(w[64]) > 1e-12 {
		t.Fatalf("symmetric Hann endpoints not zero: %v, %v", w[0], w[64])
	}
	if math.Abs(w[32]-1) > 1e-12 {
		t.Fatalf("symmetric Hann midpoint = %v, want 1", w[32])
	}
}

func TestGenerate_PeriodicForm(t *testing.T) {
	w := Generate(TypeHann, 64, WithPeriodic())
	// Periodic form: w[0] = 0, and the implied w[64] would wrap to 0;
	// the last stored sample must be nonzero.
	if math.Abs(w[0]) > 1e-12 {
		t.Fatalf("periodic Hann w[0] = %v, want 0", w[0])
	}
	if w[63] == 0 {
		t.Fatal("periodic Hann last sample should not be zero")
	}
}

func TestGenerate_Rectangular(t *testing.T) {
	for _, v := range Generate(TypeRectangular, 16) {
		if v != 1 {
			t.Fatalf("rectangular coefficient = %v, want 1", v)
		}
	}
}

func TestGenerate_BlackmanHarrisSidelobeShape(t *testing.T) {
	w := Generate(TypeBlackmanHarris4Term, 129)
	// Stronger taper than Hann at the edges.
	h := Generate(TypeHann, 129)
	if !(w[1] < h[1]) {
		t.Fatalf("Blackman-Harris edge %v not below Hann edge %v", w[1], h[1])
	}
}

func TestApply_InPlace(t *testing.T) {
	buf := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	ref := Generate(TypeHamming, len(buf))
	Apply(TypeHamming, buf)

	for i := range buf {
		if math.Abs(buf[i]-ref[i]) > 1e-12 {
			t.Fatalf("index %d: got %v, want %v", i, buf[i], ref[i])
		}
	}
}

func TestApplyCoefficients_LengthMismatch(t *testing.T) {
	if _, err := ApplyCoefficients([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := ApplyCoefficientsInPlace([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestCoherentGain(t *testing.T) {
	g, err := CoherentGain(Generate(TypeHann, 1024, WithPeriodic()))
	if err != nil {
		t.Fatalf("CoherentGain: %v", err)
	}
	if math.Abs(g-0.5) > 1e-3 {
		t.Fatalf("Hann coherent gain = %v, want ~0.5", g)
	}

	if _, err := CoherentGain(nil); err == nil {
		t.Fatal("expected error for empty coefficients")
	}
}

func TestApply_MatchesGenerateOnOnes(t *testing.T) {
	buf := testutil.Ones(128)
	Apply(TypeBlackman, buf, WithPeriodic())

	want := Generate(TypeBlackman, 128, WithPeriodic())
	testutil.RequireSliceNearlyEqual(t, buf, want, 1e-12)
	testutil.RequireFinite(t, buf)
}
