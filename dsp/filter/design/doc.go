// Package design provides pure, stateless biquad coefficient design for
// peaking and shelving equalizer filters.
//
// All functions follow the RBJ Audio-EQ-Cookbook equations and return
// [biquad.Coefficients] normalized to a0 = 1. Degenerate inputs (frequency
// outside (0, Nyquist), non-finite values) yield the unity passthrough
// biquad rather than an error, so a band with a bad parameter simply
// stops coloring the signal.
package design
