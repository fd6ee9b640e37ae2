// Package records persists submissions in the key-value store. A record key
// holds the full submission; an index key holds every record ID in
// submission order so the full set can be enumerated without a key scan.
//
// Multi-key updates are independent single-key writes. Two concurrent
// writers can lose an index append or a stats increment; that is accepted.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studentform/studentform/backend/go-services/internal/kv"
)

const (
	recordPrefix = "submission:"
	indexKey     = "submissions:index"
	recentKey    = "submissions:recent"
	statsKey     = "stats"

	// RecentCap bounds the recent-submissions list.
	RecentCap = 50
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	store kv.Store
}

func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

func RecordKey(id string) string { return recordPrefix + id }

// Save writes the record permanently.
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	if err := kv.PutJSON(ctx, r.store, RecordKey(rec.ID), rec, 0); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := kv.GetJSON(ctx, r.store, RecordKey(id), &rec); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return &rec, nil
}

// Index returns every indexed record ID in submission order. A missing
// index is an empty one.
func (r *Repository) Index(ctx context.Context) ([]string, error) {
	var ids []string
	if err := kv.GetJSON(ctx, r.store, indexKey, &ids); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("load index: %w", err)
	}
	return ids, nil
}

// AppendIndex adds id to the end of the index (read-modify-write).
func (r *Repository) AppendIndex(ctx context.Context, id string) error {
	ids, err := r.Index(ctx)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	if err := kv.PutJSON(ctx, r.store, indexKey, ids, 0); err != nil {
		return fmt.Errorf("append index: %w", err)
	}
	return nil
}

// Recent returns the latest summaries, newest first.
func (r *Repository) Recent(ctx context.Context) ([]Summary, error) {
	var list []Summary
	if err := kv.GetJSON(ctx, r.store, recentKey, &list); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("load recent: %w", err)
	}
	return list, nil
}

// PushRecent prepends s and drops the oldest entries beyond RecentCap.
func (r *Repository) PushRecent(ctx context.Context, s Summary) error {
	list, err := r.Recent(ctx)
	if err != nil {
		return err
	}
	list = append([]Summary{s}, list...)
	if len(list) > RecentCap {
		list = list[:RecentCap]
	}
	if err := kv.PutJSON(ctx, r.store, recentKey, list, 0); err != nil {
		return fmt.Errorf("push recent: %w", err)
	}
	return nil
}

func (r *Repository) loadStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := kv.GetJSON(ctx, r.store, statsKey, &st); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return st, nil
}

// Stats returns the stored counters as seen at now.
func (r *Repository) Stats(ctx context.Context, now time.Time) (Stats, error) {
	st, err := r.loadStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return st.Current(now), nil
}

// BumpStats counts one submission at now: Total always grows, Today resets
// to 1 when the stored date is not today's.
func (r *Repository) BumpStats(ctx context.Context, now time.Time) (Stats, error) {
	st, err := r.loadStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	today := dateOf(now)
	if st.LastDate == today {
		st.Today++
	} else {
		st.Today = 1
		st.LastDate = today
	}
	st.Total++
	st.LastUpdated = now.UTC()
	if err := kv.PutJSON(ctx, r.store, statsKey, st, 0); err != nil {
		return Stats{}, fmt.Errorf("save stats: %w", err)
	}
	return st, nil
}
