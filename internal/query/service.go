// Package query serves the admin listing of collected records. A request is
// answered from the full-response cache when a fresh entry exists for its
// normalized parameters; otherwise every indexed record is fetched in
// bounded concurrent batches, then filtered, sorted and paginated, and the
// encoded page is cached.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studentform/studentform/backend/go-services/internal/apperr"
	"github.com/studentform/studentform/backend/go-services/internal/kv"
	"github.com/studentform/studentform/backend/go-services/internal/records"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
	"github.com/studentform/studentform/backend/go-services/pkg/metrics"
)

const (
	DefaultCacheTTL  = 30 * time.Second
	DefaultBatchSize = 20
)

// Sort echoes the applied ordering.
type Sort struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// Page is the JSON body of a listing response.
type Page struct {
	Success    bool              `json:"success"`
	Data       []records.Record  `json:"data"`
	Pagination Pagination        `json:"pagination"`
	Stats      records.Stats     `json:"stats"`
	Recent     []records.Summary `json:"recent"`
	Filters    Filters           `json:"filters"`
	Sort       Sort              `json:"sort"`
}

// Result carries the encoded page so cache hits are byte-identical to the
// response that populated the cache.
type Result struct {
	Payload []byte
	Cached  bool
}

type cacheEntry struct {
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

type Options struct {
	CacheTTL  time.Duration
	BatchSize int
}

type Service struct {
	repo      *records.Repository
	cache     kv.Store
	cacheTTL  time.Duration
	batchSize int
	now       func() time.Time
}

// NewService builds the query pipeline. cache may be the same store the
// repository uses.
func NewService(repo *records.Repository, cache kv.Store, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Service{repo: repo, cache: cache, cacheTTL: opts.CacheTTL, batchSize: opts.BatchSize, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Query returns one page for p. The caller is responsible for authorization.
func (s *Service) Query(ctx context.Context, p Params) (*Result, error) {
	p = p.Normalize()
	key := p.CacheKey()

	if payload, ok := s.lookup(ctx, key); ok {
		metrics.QueryCache.WithLabelValues("hit").Inc()
		logger.Debugw("responses cache hit", "key", key)
		return &Result{Payload: payload, Cached: true}, nil
	}
	metrics.QueryCache.WithLabelValues("miss").Inc()

	recs, err := s.Collect(ctx, p)
	if err != nil {
		return nil, err
	}
	items, meta := paginate(recs, p.Page, p.Limit)

	now := s.now()
	stats, err := s.repo.Stats(ctx, now)
	if err != nil {
		return nil, apperr.Internal("Failed to load stats", err)
	}
	recent, err := s.repo.Recent(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load recent submissions", err)
	}

	payload, err := json.Marshal(Page{
		Success:    true,
		Data:       items,
		Pagination: meta,
		Stats:      stats,
		Recent:     recent,
		Filters:    p.Filters(),
		Sort:       Sort{SortBy: p.SortBy, SortOrder: p.SortOrder},
	})
	if err != nil {
		return nil, apperr.Internal("Failed to encode response", err)
	}
	s.store(ctx, key, payload, now)
	return &Result{Payload: payload}, nil
}

// Collect loads, filters and sorts every record matching p without paging
// or caching.
func (s *Service) Collect(ctx context.Context, p Params) ([]records.Record, error) {
	p = p.Normalize()
	ids, err := s.repo.Index(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load submissions", err)
	}
	if len(ids) == 0 {
		return []records.Record{}, nil
	}
	recs := filter(s.fetchAll(ctx, ids), p)
	sortRecords(recs, p)
	return recs, nil
}

// fetchAll reads ids in batches of batchSize concurrent gets, waiting for a
// batch to settle before starting the next. Missing or unreadable records
// are dropped.
func (s *Service) fetchAll(ctx context.Context, ids []string) []records.Record {
	out := make([]records.Record, 0, len(ids))
	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		got := make([]*records.Record, len(batch))

		var g errgroup.Group
		for i, id := range batch {
			i, id := i, id
			g.Go(func() error {
				rec, err := s.repo.Get(ctx, id)
				if err != nil {
					if !errors.Is(err, records.ErrNotFound) {
						logger.Warnf("fetch record %s: %v", id, err)
					}
					metrics.RecordFetchDropped.Inc()
					return nil
				}
				got[i] = rec
				return nil
			})
		}
		_ = g.Wait()

		for _, rec := range got {
			if rec != nil {
				out = append(out, *rec)
			}
		}
	}
	return out
}

func (s *Service) lookup(ctx context.Context, key string) ([]byte, bool) {
	var e cacheEntry
	if err := kv.GetJSON(ctx, s.cache, key, &e); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			logger.Warnf("responses cache read: %v", err)
		}
		return nil, false
	}
	if s.now().Sub(e.CreatedAt) >= s.cacheTTL {
		return nil, false
	}
	return e.Payload, true
}

// store overwrites any previous entry for key. Cache write failures only
// cost a future miss.
func (s *Service) store(ctx context.Context, key string, payload []byte, now time.Time) {
	if err := kv.PutJSON(ctx, s.cache, key, cacheEntry{CreatedAt: now, Payload: payload}, s.cacheTTL); err != nil {
		logger.Warnf("responses cache write: %v", err)
	}
}
