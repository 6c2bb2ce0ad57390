package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestResponse_UnityIsFlat(t *testing.T) {
	c := Unity()
	for _, f := range []float64{10, 100, 1000, 10000, 20000} {
		if got := cmplx.Abs(c.Response(f, 48000)); !almostEqual(got, 1, 1e-12) {
			t.Fatalf("|H(%v)| = %v, want 1", f, got)
		}
		if got := c.MagnitudeDB(f, 48000); !almostEqual(got, 0, 1e-9) {
			t.Fatalf("MagnitudeDB(%v) = %v, want 0", f, got)
		}
	}
}

func TestMagnitudeSquared_MatchesComplexResponse(t *testing.T) {
	c := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}
	for _, f := range []float64{20, 440, 1000, 5000, 15000} {
		want := cmplx.Abs(c.Response(f, 48000))
		got := math.Sqrt(c.MagnitudeSquared(f, 48000))
		if !almostEqual(got, want, 1e-9) {
			t.Fatalf("f=%v: closed form %v, complex %v", f, got, want)
		}
	}
}

func TestMagnitudeDB_FloorsDeepNotch(t *testing.T) {
	// All-zero numerator: |H| = 0 everywhere. The floor keeps the log finite.
	c := Coefficients{}
	got := c.MagnitudeDB(1000, 48000)
	if math.IsInf(got, -1) || math.IsNaN(got) {
		t.Fatalf("MagnitudeDB not floored: %v", got)
	}
	if !almostEqual(got, -200, 1e-9) {
		t.Fatalf("MagnitudeDB = %v, want -200 (20*log10(1e-10))", got)
	}
}

func TestChainMagnitudeDB_SumsSections(t *testing.T) {
	a := Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}
	b := Coefficients{B0: 0.9, B1: -0.2, B2: 0.05, A1: 0.1, A2: -0.03}
	chain := NewChain([]Coefficients{a, b})

	for _, f := range []float64{100, 1000, 8000} {
		want := a.MagnitudeDB(f, 48000) + b.MagnitudeDB(f, 48000)
		got := chain.MagnitudeDB(f, 48000)
		if !almostEqual(got, want, 1e-9) {
			t.Fatalf("f=%v: chain %v, sum %v", f, got, want)
		}
	}
}
