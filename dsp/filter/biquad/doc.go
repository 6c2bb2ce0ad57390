// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. Multiple sections can be
// cascaded via [Chain], which is how an equalizer's band stack is run.
//
// This package provides the processing runtime and response evaluation only.
// Coefficient design (peaking, shelving) lives in dsp/filter/design.
package biquad
