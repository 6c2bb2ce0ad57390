package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cwbudde/tabeq/engine"
	"github.com/cwbudde/tabeq/engine/capture"
	"github.com/cwbudde/tabeq/eq"
)

// AudioHost is the manager's view of the audio host. The concrete host
// serializes everything on its own loop; the manager never reaches past
// this boundary.
type AudioHost interface {
	Create(ctx context.Context, src engine.SourceID, handle capture.Handle) error
	UpdateParameters(ctx context.Context, src engine.SourceID, u eq.Update) error
	SetMasterGain(src engine.SourceID, v float64) error
	GetMasterGain(src engine.SourceID) float64
	Bands(src engine.SourceID) (eq.Bank, error)
	ReadSpectrum(src engine.SourceID) (engine.Spectrum, error)
	Destroy(src engine.SourceID) error
	ListActive() []engine.SourceID
	ListActiveWithHandles() map[engine.SourceID]capture.Handle
	Close() error
}

// HostFactory creates the audio host on first use. Construction is
// deferred so the daemon can come up before any audio work exists.
type HostFactory func() (AudioHost, error)

// Session is one registry row.
type Session struct {
	Status engine.Status
	Handle capture.Handle

	// ReconcileFailures counts consecutive failed repair attempts.
	// Reset to zero by any successful reconcile of this row.
	ReconcileFailures int
}

// ReconcilePolicy bounds repair retries. MaxAttempts is the number of
// consecutive failures after which a row is dropped; zero retries forever.
type ReconcilePolicy struct {
	MaxAttempts int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithReconcilePolicy sets the repair retry policy.
func WithReconcilePolicy(p ReconcilePolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// Manager owns the session registry. All registry state is volatile: a
// restarted manager starts empty and rebuilds from the host.
type Manager struct {
	factory HostFactory
	grantor capture.Grantor
	log     *slog.Logger
	policy  ReconcilePolicy

	mu       sync.Mutex
	host     AudioHost
	registry map[engine.SourceID]*Session
	starting map[engine.SourceID]struct{}
}

// NewManager creates a manager with an empty registry. The host is not
// constructed until the first operation needs it.
func NewManager(factory HostFactory, grantor capture.Grantor, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		grantor:  grantor,
		log:      slog.Default(),
		registry: make(map[engine.SourceID]*Session),
		starting: make(map[engine.SourceID]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// ensureHost lazily constructs the audio host. Caller holds m.mu.
func (m *Manager) ensureHost() (AudioHost, error) {
	if m.host != nil {
		return m.host, nil
	}

	h, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("create audio host: %w", err)
	}

	m.host = h

	return h, nil
}

// StartSession establishes a session for src. It is idempotent: a live
// session acknowledges AlreadyActive, and a second caller racing an
// in-flight start gets AlreadyStarting immediately instead of waiting.
func (m *Manager) StartSession(ctx context.Context, src engine.SourceID) (engine.StartResult, error) {
	m.mu.Lock()

	if _, inflight := m.starting[src]; inflight {
		m.mu.Unlock()
		return engine.StartResult{AlreadyStarting: true}, nil
	}

	if s, ok := m.registry[src]; ok && s.Status == engine.StatusActive {
		m.mu.Unlock()
		return engine.StartResult{AlreadyActive: true}, nil
	}

	host, err := m.ensureHost()
	if err != nil {
		m.mu.Unlock()
		return engine.StartResult{}, err
	}

	// Claim the id before releasing the lock: the row and the starting
	// marker go in together, so no second start can slip between the
	// check and the insert.
	m.starting[src] = struct{}{}
	m.registry[src] = &Session{Status: engine.StatusStarting}
	m.mu.Unlock()

	result, err := m.buildSession(ctx, host, src)

	m.mu.Lock()
	delete(m.starting, src)

	if err != nil {
		delete(m.registry, src)
	}
	m.mu.Unlock()

	return result, err
}

// buildSession acquires a handle and creates the graph, then flips the
// row to Active. Runs outside the manager lock.
func (m *Manager) buildSession(ctx context.Context, host AudioHost, src engine.SourceID) (engine.StartResult, error) {
	handle, err := m.grantor.Acquire(ctx, src)
	if err != nil {
		return engine.StartResult{}, fmt.Errorf("acquire capture for %s: %w", src, err)
	}

	if err := host.Create(ctx, src, handle); err != nil {
		// A graph the registry forgot about (control plane restarted
		// without rehydrating) is adopted, not refused.
		if errors.Is(err, engine.ErrAlreadyActive) {
			m.adopt(host, src)
			return engine.StartResult{AlreadyActive: true}, nil
		}

		return engine.StartResult{}, err
	}

	m.mu.Lock()
	if s, ok := m.registry[src]; ok {
		s.Status = engine.StatusActive
		s.Handle = handle
	}
	m.mu.Unlock()

	m.log.Info("session started", "source", src)

	return engine.StartResult{}, nil
}

// adopt marks src Active using the host's live handle.
func (m *Manager) adopt(host AudioHost, src engine.SourceID) {
	handle := host.ListActiveWithHandles()[src]

	m.mu.Lock()
	if s, ok := m.registry[src]; ok {
		s.Status = engine.StatusActive
		s.Handle = handle
	}
	m.mu.Unlock()
}

// StopSession removes src's row and destroys its graph. The row goes
// first, so a failed teardown never leaves a registry entry pointing at
// a half-dead graph.
func (m *Manager) StopSession(_ context.Context, src engine.SourceID) error {
	m.mu.Lock()
	_, known := m.registry[src]
	delete(m.registry, src)
	host := m.host
	m.mu.Unlock()

	if host == nil {
		if !known {
			return fmt.Errorf("%w: %s", engine.ErrNotFound, src)
		}

		return nil
	}

	err := host.Destroy(src)
	if err != nil && !known {
		return err
	}
	if err != nil && !errors.Is(err, engine.ErrNotFound) {
		m.log.Warn("destroy after stop failed", "source", src, "error", err)
	}

	if !known && err == nil {
		// The host had a graph the registry did not know about; it is
		// gone now either way.
		m.log.Debug("stopped unregistered graph", "source", src)
	}

	return nil
}

// HandleSourceRemoved tears the session down when the environment reports
// the source gone (e.g. the tab closed). Errors are logged, not returned:
// there is nobody to retry for.
func (m *Manager) HandleSourceRemoved(ctx context.Context, src engine.SourceID) {
	if err := m.StopSession(ctx, src); err != nil && !errors.Is(err, engine.ErrNotFound) {
		m.log.Warn("source removal cleanup failed", "source", src, "error", err)
	}
}

// Rehydrate rebuilds the registry from the host's live graphs. Every
// discovered graph becomes an Active row with its stored handle. Called
// on control plane boot; a fresh process over a still-running host comes
// back with full state.
func (m *Manager) Rehydrate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	host, err := m.ensureHost()
	if err != nil {
		return err
	}

	live := host.ListActiveWithHandles()

	m.registry = make(map[engine.SourceID]*Session, len(live))
	for src, handle := range live {
		m.registry[src] = &Session{Status: engine.StatusActive, Handle: handle}
	}

	m.log.Info("registry rehydrated", "sessions", len(live))

	return nil
}

// Reconcile repairs drift between the registry and the host: rows whose
// graph disappeared are re-created with a freshly acquired handle (the
// old one was single-use), and live graphs missing a row are adopted.
// Per-row failures are counted; a row is dropped after
// ReconcilePolicy.MaxAttempts consecutive failures (zero keeps retrying
// forever). Returns the first repair error, after attempting every row.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	host := m.host
	if host == nil {
		m.mu.Unlock()
		return nil
	}

	live := make(map[engine.SourceID]bool)
	for _, src := range host.ListActive() {
		live[src] = true
	}

	var missing []engine.SourceID
	for src, s := range m.registry {
		if s.Status == engine.StatusActive && !live[src] {
			missing = append(missing, src)
		}
	}
	slices.Sort(missing)
	m.mu.Unlock()

	// Adopt graphs the registry lost track of.
	for src, handle := range host.ListActiveWithHandles() {
		m.mu.Lock()
		if _, ok := m.registry[src]; !ok {
			m.registry[src] = &Session{Status: engine.StatusActive, Handle: handle}
			m.log.Info("adopted unregistered graph", "source", src)
		}
		m.mu.Unlock()
	}

	var firstErr error

	for _, src := range missing {
		if err := m.repair(ctx, host, src); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// repair re-creates one lost graph with a fresh handle.
func (m *Manager) repair(ctx context.Context, host AudioHost, src engine.SourceID) error {
	handle, err := m.grantor.Acquire(ctx, src)
	if err == nil {
		err = host.Create(ctx, src, handle)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry[src]
	if !ok {
		// Stopped while we were repairing; undo the create if it landed.
		if err == nil {
			go func() { _ = host.Destroy(src) }()
		}

		return nil
	}

	if err != nil {
		s.ReconcileFailures++
		m.log.Warn("reconcile repair failed", "source", src,
			"attempt", s.ReconcileFailures, "error", err)

		if m.policy.MaxAttempts > 0 && s.ReconcileFailures >= m.policy.MaxAttempts {
			delete(m.registry, src)
			m.log.Warn("session dropped after repeated repair failures", "source", src)
		}

		return err
	}

	s.Handle = handle
	s.ReconcileFailures = 0
	m.log.Info("session repaired", "source", src)

	return nil
}

// QueryStatus returns src's lifecycle status and whether a row exists.
func (m *Manager) QueryStatus(src engine.SourceID) (engine.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.registry[src]
	if !ok {
		return 0, false
	}

	return s.Status, true
}

// ListActiveSessions returns the ids of all Active rows in ascending order.
func (m *Manager) ListActiveSessions() []engine.SourceID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]engine.SourceID, 0, len(m.registry))
	for src, s := range m.registry {
		if s.Status == engine.StatusActive {
			ids = append(ids, src)
		}
	}

	slices.Sort(ids)

	return ids
}

// hostFor returns the host when a registry row exists for src.
func (m *Manager) hostFor(src engine.SourceID) (AudioHost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry[src]; !ok || m.host == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, src)
	}

	return m.host, nil
}

// SetMasterGain forwards a master gain write to src's graph.
func (m *Manager) SetMasterGain(src engine.SourceID, v float64) error {
	host, err := m.hostFor(src)
	if err != nil {
		return err
	}

	return host.SetMasterGain(src, v)
}

// GetMasterGain returns src's master gain, 1.0 when no session exists.
func (m *Manager) GetMasterGain(src engine.SourceID) float64 {
	host, err := m.hostFor(src)
	if err != nil {
		return 1.0
	}

	return host.GetMasterGain(src)
}

// UpdateBands forwards a sparse band update to src's graph.
func (m *Manager) UpdateBands(ctx context.Context, src engine.SourceID, u eq.Update) error {
	host, err := m.hostFor(src)
	if err != nil {
		return err
	}

	return host.UpdateParameters(ctx, src, u)
}

// Bands returns a snapshot of src's band parameters.
func (m *Manager) Bands(src engine.SourceID) (eq.Bank, error) {
	host, err := m.hostFor(src)
	if err != nil {
		return eq.Bank{}, err
	}

	return host.Bands(src)
}

// Spectrum returns src's current spectrum snapshot.
func (m *Manager) Spectrum(src engine.SourceID) (engine.Spectrum, error) {
	host, err := m.hostFor(src)
	if err != nil {
		return engine.Spectrum{}, err
	}

	return host.ReadSpectrum(src)
}

// Ping reports control plane liveness.
func (m *Manager) Ping() bool {
	return true
}

// Close shuts down the host if one was ever constructed. The registry is
// volatile and simply discarded.
func (m *Manager) Close() error {
	m.mu.Lock()
	host := m.host
	m.host = nil
	m.registry = make(map[engine.SourceID]*Session)
	m.mu.Unlock()

	if host == nil {
		return nil
	}

	return host.Close()
}
