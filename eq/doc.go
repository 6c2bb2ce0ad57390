// Package eq models the 13-band equalizer parameter set.
//
// A [Bank] holds one [Band] per index 0-12 over a fixed ascending center
// frequency table. Indices 0-1 are inert passthrough bands kept for
// addressing symmetry, index 2 is a low shelf, 3-11 are peaking bands and
// 12 is a high shelf. The package translates user-facing values (gain in
// dB, base Q, frequency) into filter design parameters, including the
// gain-dependent Q coupling applied to peaking bands.
//
// All writes clamp silently to the legal ranges; out-of-range values are
// never rejected.
package eq
