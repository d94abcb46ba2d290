package scan

import (
	"context"
	"strings"
	"sync"
)

// Manager runs at most one scan per handle in the background. Handles are
// opaque strings, normally workbench tab ids.
type Manager struct {
	orch *Orchestrator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	cancels  map[string]context.CancelFunc
}

// NewManager creates a Manager running sessions with orch.
func NewManager(orch *Orchestrator) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		orch:     orch,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start begins a scan of targetURL for handle. It fails with
// ErrScanInProgress while the handle's previous scan is still running; a
// finished scan is replaced.
func (m *Manager) Start(handle, targetURL string) (*Session, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, ErrNoTarget
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sessions[handle]; ok && !prev.Phase().Terminal() {
		return nil, ErrScanInProgress
	}

	s := NewSession(targetURL)
	ctx, cancel := context.WithCancel(m.ctx)
	m.sessions[handle] = s
	m.cancels[handle] = cancel

	m.orch.metrics.ScanStarted()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer m.orch.metrics.ScanFinished()
		m.orch.Run(ctx, s)
	}()
	return s, nil
}

// Get returns the latest session for handle.
func (m *Manager) Get(handle string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[handle]
	return s, ok
}

// Cancel stops the running scan for handle. Cancelling a finished scan is
// a no-op.
func (m *Manager) Cancel(handle string) error {
	m.mu.Lock()
	cancel, ok := m.cancels[handle]
	m.mu.Unlock()
	if !ok {
		return ErrNoScan
	}
	cancel()
	return nil
}

// Remove cancels and forgets the scan for handle.
func (m *Manager) Remove(handle string) {
	m.mu.Lock()
	cancel, ok := m.cancels[handle]
	delete(m.cancels, handle)
	delete(m.sessions, handle)
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close cancels every running scan and waits for them to stop.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
