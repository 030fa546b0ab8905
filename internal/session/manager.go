// Package session caches authenticated provider sessions with a TTL and
// collapses concurrent login attempts into one.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

// Authenticator performs a full login sequence against a provider and
// returns a fresh session. Implementations drive a real browser; tests
// substitute a fake.
type Authenticator interface {
	Login(ctx context.Context) (*schemas.Session, error)
}

// Manager owns the cached session for one provider. The common path, a
// cache hit inside the TTL window, takes a mutex and nothing else. Cache
// misses coalesce onto a single in-flight login.
type Manager struct {
	auth   Authenticator
	logger *zap.Logger
	clock  func() time.Time

	mu          sync.Mutex
	cached      *schemas.Session
	invalidated bool

	group singleflight.Group
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects a time source for deterministic expiry tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// NewManager creates a session manager around the given login flow.
func NewManager(auth Authenticator, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		logger: logger.Named("session_manager"),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns a valid session, reusing the cached one when it is inside
// its TTL and has not been invalidated, otherwise performing one login no
// matter how many callers are waiting.
func (m *Manager) Acquire(ctx context.Context) (*schemas.Session, error) {
	if s, ok := m.cachedValid(); ok {
		return s, nil
	}

	v, err, _ := m.group.Do("login", func() (interface{}, error) {
		// A waiter that queued behind the winning call finds the fresh
		// session here and skips its own login.
		if s, ok := m.cachedValid(); ok {
			return s, nil
		}

		m.logger.Info("No valid cached session, performing login")
		s, err := m.auth.Login(ctx)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.cached = s
		m.invalidated = false
		m.mu.Unlock()

		m.logger.Info("Session acquired",
			zap.Time("acquired_at", s.AcquiredAt),
			zap.Duration("ttl", s.TTL),
		)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schemas.Session), nil
}

// Invalidate marks the cached session as rejected by the provider. The next
// Acquire performs a fresh login regardless of remaining TTL.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil && !m.invalidated {
		m.logger.Warn("Cached session invalidated by provider response")
	}
	m.invalidated = true
}

func (m *Manager) cachedValid() (*schemas.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil || m.invalidated {
		return nil, false
	}
	if !m.cached.ValidAt(m.clock()) {
		return nil, false
	}
	return m.cached, true
}
