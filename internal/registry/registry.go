// Package registry tracks the live sessions of a server, one runner per
// connected client.
package registry

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/journeydrive/sim/internal/game"
	"github.com/journeydrive/sim/internal/host"
)

var ErrServerFull = errors.New("server full")

// Factory builds a fresh session for a new client.
type Factory func() (*game.Session, error)

// Registry maps session IDs to their runners
type Registry struct {
	mu          sync.RWMutex
	runners     map[string]*host.Runner
	conns       map[string]host.Connection
	factory     Factory
	maxSessions int
}

// New creates a registry that builds sessions with factory and holds at most
// maxSessions of them.
func New(factory Factory, maxSessions int) *Registry {
	return &Registry{
		runners:     make(map[string]*host.Runner),
		conns:       make(map[string]host.Connection),
		factory:     factory,
		maxSessions: maxSessions,
	}
}

// Open creates a session for conn and starts its runner.
func (m *Registry) Open(conn host.Connection) (*host.Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.runners) >= m.maxSessions {
		return nil, ErrServerFull
	}

	session, err := m.factory()
	if err != nil {
		return nil, err
	}

	runner := host.NewRunner(session, conn)
	runner.SetOnKick(func(r *host.Runner, reason string) {
		// Called from the runner's loop; Close never waits on it
		m.Close(r.ID())
	})

	m.runners[session.ID] = runner
	m.conns[session.ID] = conn
	runner.Start()

	return runner, nil
}

// Get gets a runner by session ID
func (m *Registry) Get(id string) *host.Runner {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.runners[id]
}

// Close stops a session and closes its connection. Unknown IDs are ignored.
func (m *Registry) Close(id string) {
	m.mu.Lock()
	runner, ok := m.runners[id]
	conn := m.conns[id]
	delete(m.runners, id)
	delete(m.conns, id)
	m.mu.Unlock()

	if !ok {
		return
	}

	runner.Stop()
	if err := conn.Close(); err != nil {
		log.Printf("Closing connection for session %s: %v", id, err)
	}
}

// CleanupIdle closes sessions whose client has been silent longer than
// maxIdle.
func (m *Registry) CleanupIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var stale []string
	for id, runner := range m.runners {
		if runner.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.Close(id)
	}
	return len(stale)
}

// Count returns the number of live sessions.
func (m *Registry) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runners)
}

// GetStats returns registry statistics
func (m *Registry) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := Stats{
		TotalSessions: len(m.runners),
		MaxSessions:   m.maxSessions,
		Sessions:      make([]SessionStats, 0, len(m.runners)),
	}

	for id, runner := range m.runners {
		stats.Sessions = append(stats.Sessions, SessionStats{
			ID:         id,
			RemoteAddr: runner.RemoteAddr(),
			IdleFor:    now.Sub(runner.LastActivity()),
		})
	}
	sort.Slice(stats.Sessions, func(i, j int) bool {
		return stats.Sessions[i].ID < stats.Sessions[j].ID
	})

	return stats
}

// Stats contains registry statistics
type Stats struct {
	TotalSessions int
	MaxSessions   int
	Sessions      []SessionStats
}

// SessionStats contains per-session statistics
type SessionStats struct {
	ID         string
	RemoteAddr string
	IdleFor    time.Duration
}
