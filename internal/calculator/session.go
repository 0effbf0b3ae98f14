package calculator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one calculator owned by an HTTP client.
type Session struct {
	ID string

	mu         sync.Mutex
	controller *Controller
	screen     *Screen
	lastUsed   time.Time
}

// Do runs fn with exclusive access to the session's controller.
func (s *Session) Do(fn func(c *Controller, screen *Screen) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.controller, s.screen)
}

// StoreOptions configures a Store. Zero values disable the corresponding limit.
type StoreOptions struct {
	TTL         time.Duration
	MaxSessions int
	Logger      *zap.Logger
}

// Store keeps sessions in memory. Nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl    time.Duration
	max    int
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      opts.TTL,
		max:      opts.MaxSessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a fresh session. Idle sessions are swept first so expired
// ones never count against the limit.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if s.max > 0 && len(s.sessions) >= s.max {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, s.max)
	}

	id := uuid.New().String()
	screen := &Screen{}
	machine := NewMachine(s.logger.With(zap.String("session_id", id)))

	sess := &Session{
		ID:         id,
		controller: NewController(machine, screen),
		screen:     screen,
		lastUsed:   s.now(),
	}
	s.sessions[id] = sess
	sessionsGauge.Set(float64(len(s.sessions)))

	s.logger.Info("session created", zap.String("session_id", id))

	return sess, nil
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expiredLocked(sess) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastUsed = s.now()
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	sessionsGauge.Set(float64(len(s.sessions)))

	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Len reports how many sessions are held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired sessions swept", zap.Int("count", n))
			}
		}
	}
}

func (s *Store) sweepLocked() int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expiredLocked(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		sessionsGauge.Set(float64(len(s.sessions)))
	}
	return removed
}

func (s *Store) expiredLocked(sess *Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.lastUsed) > s.ttl
}
