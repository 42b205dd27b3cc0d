package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinichat/internal/metrics"
	"clinichat/internal/models"
)

// Repository persists conversation sessions.
type Repository interface {
	// Get returns the session or a typed error: models.ErrSessionExpired for
	// an idled-out id, models.ErrNotFound for an id that never existed.
	// Unknown and expired ids are rejected, never silently recreated.
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory with a TTL.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Get returns a session by id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	if s.IsExpired(m.ttl) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: session %s", models.ErrSessionExpired, id)
	}
	return s, nil
}

// Save stores the session.
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return nil
}

// Cleanup removes expired sessions and returns how many were dropped.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired(m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return removed
}

// StartCleanup sweeps expired sessions periodically until ctx is done.
func (m *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}
