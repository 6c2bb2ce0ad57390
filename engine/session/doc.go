// Package session is the control plane: a volatile registry of sessions
// keyed by source id, layered over the audio host. The registry is the
// fast-path view; the host's graph set is the ground truth, and the
// registry can always be rebuilt from it (Rehydrate) or repaired against
// it (Reconcile) after the control plane restarts or drifts.
package session
