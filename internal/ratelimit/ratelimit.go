// Package ratelimit implements sliding-window admission control keyed by
// client identity. The window state lives in a CounterStore so a single
// process can use memory while a multi-instance deployment points every
// replica at redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/studentform/studentform/backend/go-services/pkg/logger"
	"github.com/studentform/studentform/backend/go-services/pkg/metrics"
)

// CounterStore records hits in a per-key sliding window. Hit evicts entries
// at or before now-window, then either records now and returns true, or
// returns false without recording when max entries remain.
type CounterStore interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (bool, error)
}

// Limiter admits at most Max events per identity in any trailing Window.
type Limiter struct {
	name   string
	store  CounterStore
	max    int
	window time.Duration
	now    func() time.Time
}

// New builds a limiter. name prefixes store keys and labels metrics, so two
// limiters sharing a store never see each other's hits.
func New(name string, store CounterStore, max int, window time.Duration) *Limiter {
	return &Limiter{name: name, store: store, max: max, window: window, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Name() string          { return l.name }
func (l *Limiter) Window() time.Duration { return l.window }
func (l *Limiter) Max() int              { return l.max }

// Allow reports whether identity may proceed and records the attempt when it
// may. A store failure admits the request.
func (l *Limiter) Allow(ctx context.Context, identity string) bool {
	if identity == "" {
		identity = "unknown"
	}
	ok, err := l.store.Hit(ctx, l.name+":"+identity, l.now(), l.window, l.max)
	if err != nil {
		logger.Warnw("rate limit store failed, admitting request", "limiter", l.name, "err", err)
		metrics.RateLimitAllowed.WithLabelValues(l.name).Inc()
		return true
	}
	if !ok {
		metrics.RateLimitRejected.WithLabelValues(l.name).Inc()
		return false
	}
	metrics.RateLimitAllowed.WithLabelValues(l.name).Inc()
	return true
}
