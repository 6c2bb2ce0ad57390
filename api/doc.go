// Package api exposes the control plane over HTTP: session lifecycle,
// per-band parameter edits, master gain, spectrum snapshots and the
// global reconcile trigger. Responses are JSON envelopes carrying an
// "ok" flag; host sentinel errors map onto HTTP status codes.
package api
