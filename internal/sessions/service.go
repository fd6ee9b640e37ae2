// Package sessions implements admin sessions: Active from login until the
// absolute lifetime passes, then Expired, and Deleted on the first check
// that notices (or on logout). There is no background sweep.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/studentform/studentform/backend/go-services/pkg/logger"
)

const DefaultTTL = 24 * time.Hour

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: r, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests. A KVRepository is
// switched to the same clock so stored TTLs agree with session deadlines.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	if r, ok := s.repo.(*KVRepository); ok {
		r.WithClock(now)
	}
	return s
}

// TTL is the absolute session lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// CreateSession stores a new active session and returns it.
func (s *Service) CreateSession(ctx context.Context, ip, userAgent string) (*Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{
		ID:           hex.EncodeToString(b),
		LoggedIn:     true,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.ttl),
		IP:           ip,
		UserAgent:    userAgent,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate returns the session if id names an active one, or nil. An
// expired session is deleted. A valid read refreshes LastActivity; failing
// to store that refresh does not fail the check.
func (s *Service) Validate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.LoggedIn {
		return nil, nil
	}
	now := s.now().UTC()
	if now.Sub(sess.CreatedAt) > s.ttl || sess.Expired(now) {
		// cleanup expired session
		if err := s.repo.Delete(ctx, id); err != nil {
			logger.Warnf("delete expired session: %v", err)
		}
		return nil, nil
	}
	sess.LastActivity = now
	if err := s.repo.Save(ctx, sess); err != nil {
		logger.Warnf("refresh session activity: %v", err)
	}
	return sess, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.Delete(ctx, id)
}
