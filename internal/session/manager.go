package session

import (
	"sort"
	"sync"
)

// Manager owns one Session per notebook path.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions share cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg.withDefaults(), sessions: make(map[string]*Session)}
}

// Open returns the session for path, creating it around ch if needed.
// An existing session keeps its channel.
func (m *Manager) Open(path string, ch Channel) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[path]; ok {
		return s
	}
	s := New(path, ch, m.cfg)
	m.sessions[path] = s
	return s
}

// Get returns the session for path.
func (m *Manager) Get(path string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[path]
	return s, ok
}

// Close forgets the session for path.
func (m *Manager) Close(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, path)
}

// Paths returns the managed notebook paths in order.
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for p := range m.sessions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
