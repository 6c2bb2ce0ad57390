package biquad

import (
	"math"
	"math/cmplx"
)

// magnitudeFloor is the smallest magnitude fed into the logarithm when
// converting to dB. It keeps deep notches from evaluating to -Inf.
const magnitudeFloor = 1e-10

// Response computes the complex frequency response H(e^jw) of a biquad
// at the given frequency (Hz) and sample rate (Hz).
func (c *Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	ejw := cmplx.Exp(complex(0, -w))
	ej2w := cmplx.Exp(complex(0, -2*w))

	num := complex(c.B0, 0) + complex(c.B1, 0)*ejw + complex(c.B2, 0)*ej2w
	den := complex(1, 0) + complex(c.A1, 0)*ejw + complex(c.A2, 0)*ej2w
	return num / den
}

// MagnitudeSquared returns |H(f)|^2 using a closed-form expression.
// This avoids computing complex exponentials.
func (c *Coefficients) MagnitudeSquared(freqHz, sampleRate float64) float64 {
	cw := 2 * math.Cos(2*math.Pi*freqHz/sampleRate)
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	num := (b0-b2)*(b0-b2) + b1*b1 + (b1*(b0+b2)+b0*b2*cw)*cw
	den := (1-a2)*(1-a2) + a1*a1 + (a1*(a2+1)+cw*a2)*cw
	return num / den
}

// MagnitudeDB returns 20*log10(|H(f)|), with the magnitude clamped below
// at magnitudeFloor before the logarithm.
//
// This is the single formula used both to verify the live filter and to
// render its response curve; evaluating the same coefficients at a
// different frequency grid must yield numerically identical values.
func (c *Coefficients) MagnitudeDB(freqHz, sampleRate float64) float64 {
	mag := math.Sqrt(c.MagnitudeSquared(freqHz, sampleRate))
	if mag < magnitudeFloor {
		mag = magnitudeFloor
	}

	return 20 * math.Log10(mag)
}

// Response computes the complex frequency response of the full cascade
// as the product of individual section responses.
func (c *Chain) Response(freqHz, sampleRate float64) complex128 {
	h := complex(c.gain, 0)
	for i := range c.sections {
		h *= c.sections[i].Response(freqHz, sampleRate)
	}
	return h
}

// MagnitudeDB returns the cascaded magnitude response in dB, with the same
// magnitude floor as the single-section variant.
func (c *Chain) MagnitudeDB(freqHz, sampleRate float64) float64 {
	mag := cmplx.Abs(c.Response(freqHz, sampleRate))
	if mag < magnitudeFloor {
		mag = magnitudeFloor
	}

	return 20 * math.Log10(mag)
}
