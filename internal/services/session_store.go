package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kpidash/pkg/contracts/domain"
)

// Session is one dashboard user's state: an immutable dataset and the
// current filter selection
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
	Dataset   *domain.Dataset
	State     domain.FilterState
	// Selected is the last clicked trend date, nil when idle
	Selected *time.Time
}

// SessionStore is an in-memory session store with idle expiry
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
	onExpire func(ids []string)
}

// NewSessionStore creates a store. Sessions idle for longer than ttl are
// removed by Sweep; max caps the number of live sessions.
func NewSessionStore(ttl time.Duration, max int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
	}
}

// OnExpire sets the function told about every idle session the store
// drops, whether by Sweep or to free a slot in Create. It runs outside the
// store lock. Set it before the store is shared.
func (s *SessionStore) OnExpire(fn func(ids []string)) {
	s.onExpire = fn
}

// Create registers a new session bound to ds, which may be nil
func (s *SessionStore) Create(ds *domain.Dataset) (*Session, error) {
	sess, expired, err := s.create(ds)
	s.expired(expired)
	return sess, err
}

func (s *SessionStore) create(ds *domain.Dataset) (*Session, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	if s.max > 0 && len(s.sessions) >= s.max {
		expired = s.sweepLocked()
		if len(s.sessions) >= s.max {
			return nil, expired, ErrSessionLimit
		}
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		LastSeen:  now,
		Dataset:   ds,
	}
	if ds != nil {
		sess.State = domain.DefaultFilterState(ds)
	}
	s.sessions[sess.ID] = sess

	sessCopy := *sess
	return &sessCopy, expired, nil
}

// Get returns a copy of the session and marks it as seen
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	sess.LastSeen = s.now()

	sessCopy := *sess
	return &sessCopy, nil
}

// Update applies fn to the stored session under the store lock
func (s *SessionStore) Update(id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.LastSeen = s.now()

	sessCopy := *sess
	return &sessCopy, nil
}

// Delete removes a session
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and returns their IDs
func (s *SessionStore) Sweep() []string {
	s.mu.Lock()
	ids := s.sweepLocked()
	s.mu.Unlock()

	s.expired(ids)
	return ids
}

func (s *SessionStore) sweepLocked() []string {
	if s.ttl <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.ttl)
	var ids []string
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *SessionStore) expired(ids []string) {
	if len(ids) > 0 && s.onExpire != nil {
		s.onExpire(ids)
	}
}

// Run sweeps every interval until ctx is done
func (s *SessionStore) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ids := s.Sweep(); len(ids) > 0 {
				logger.Info("Expired idle sessions",
					slog.Int("removed", len(ids)),
					slog.Int("remaining", s.Len()))
			}
		}
	}
}
