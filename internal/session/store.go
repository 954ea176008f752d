// Package session keeps one reconciliation page per operator and tears
// pages down once they go idle.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"reconciliation-console/internal/services/reconciliation"
)

// Session is an operator's page plus the notification queue it writes to.
type Session struct {
	ID    string
	Page  *reconciliation.Page
	Flash *reconciliation.Flash

	lastSeen time.Time
}

// Factory builds the page for a new session.
type Factory func(id string, flash *reconciliation.Flash) *reconciliation.Page

type Store struct {
	factory     Factory
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	cron *cron.Cron
}

func NewStore(factory Factory, idleTimeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		factory:     factory,
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger.With("component", "session"),
		sessions:    make(map[string]*Session),
	}
}

// Get returns the session for id, creating a fresh one when id is unknown
// or empty. The second result reports whether a session was created.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastSeen = s.now()
		return sess, false
	}

	newID := uuid.NewString()
	flash := reconciliation.NewFlash(reconciliation.DefaultToastTTL, s.now)
	sess := &Session{
		ID:       newID,
		Flash:    flash,
		Page:     s.factory(newID, flash),
		lastSeen: s.now(),
	}
	s.sessions[newID] = sess
	s.logger.Info("session started", "session", newID)
	return sess, true
}

// Lookup returns the live session for id without creating one.
func (s *Store) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes and forgets sessions idle for longer than the timeout.
func (s *Store) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.idleTimeout)
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Page.Close()
		s.logger.Info("session expired", "session", sess.ID)
	}
	return len(expired)
}

// StartSweeper runs Sweep on the given cron schedule until Stop.
func (s *Store) StartSweeper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Debug("swept idle sessions", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("unable to schedule session sweeper: %w", err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	return nil
}

// Stop halts the sweeper and closes every session.
func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, sess := range sessions {
		sess.Page.Close()
	}
}
