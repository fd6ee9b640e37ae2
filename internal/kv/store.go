// Package kv is the key-value collaborator that owns every piece of
// persisted state: records, the record index, stats, sessions and the query
// cache. Backends differ only in where bytes live; all of them honour a
// per-key TTL where zero means "keep forever".
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal contract every backend implements.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GetJSON decodes the value at key into v. It returns ErrNotFound unchanged
// so callers can distinguish a missing key from a broken one.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, b, ttl)
}
