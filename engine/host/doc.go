// Package host implements the audio host: the long-lived process side
// that owns real audio graphs, one per captured source.
//
// A [Host] runs a single command loop; every operation is forwarded to
// that loop and awaited, so graph mutation is fully serialized. In
// particular a destroy issued while a create is still running for the
// same source queues behind it rather than interleaving. Each graph is
// self-contained (own render context, filter chain, capture stream and
// analyzer), so distinct sources process truly in parallel.
//
// The host never panics across the command boundary: every failure comes
// back as an error from the taxonomy in package engine.
package host
