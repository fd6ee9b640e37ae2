package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studentform/studentform/backend/go-services/internal/kv"
)

// Repository provides session persistence operations. Get returns
// (nil, nil) for an unknown ID.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// KVRepository stores sessions as JSON under "session:<id>" with a TTL equal
// to the remaining lifetime, so every backend drops them on its own even
// when nobody reads them again.
type KVRepository struct {
	store  kv.Store
	prefix string
	now    func() time.Time
}

// NewKVRepository creates a KV-backed session repository. Prefix may be empty.
func NewKVRepository(store kv.Store, prefix string) *KVRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &KVRepository{store: store, prefix: prefix, now: time.Now}
}

// WithClock replaces the time source used to compute TTLs.
func (r *KVRepository) WithClock(now func() time.Time) *KVRepository {
	r.now = now
	return r
}

func (r *KVRepository) key(id string) string {
	return r.prefix + id
}

func (r *KVRepository) Create(ctx context.Context, s *Session) error {
	return r.Save(ctx, s)
}

// Save overwrites the stored session. The TTL is recomputed from ExpiresAt.
func (r *KVRepository) Save(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		// ensure a minimal TTL so backends won't keep expired sessions
		ttl = time.Second
	}
	if err := kv.PutJSON(ctx, r.store, r.key(s.ID), s, ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *KVRepository) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := kv.GetJSON(ctx, r.store, r.key(id), &s); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *KVRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
