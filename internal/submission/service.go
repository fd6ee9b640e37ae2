// Package submission accepts student form posts: rate limit, parse,
// sanitize, validate, then persist the record together with its index entry,
// recent-list entry and stats bump. Each step is a gate; the first failure
// ends the request.
package submission

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studentform/studentform/backend/go-services/internal/apperr"
	"github.com/studentform/studentform/backend/go-services/internal/ratelimit"
	"github.com/studentform/studentform/backend/go-services/internal/records"
	"github.com/studentform/studentform/backend/go-services/internal/validation"
	"github.com/studentform/studentform/backend/go-services/pkg/logger"
	"github.com/studentform/studentform/backend/go-services/pkg/metrics"
)

// Client identifies the caller for rate limiting and provenance.
type Client struct {
	IP        string
	UserAgent string
}

// Receipt is returned for an accepted submission.
type Receipt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
}

type Service struct {
	limiter *ratelimit.Limiter
	repo    *records.Repository
	now     func() time.Time
	newID   func(time.Time) string
}

func NewService(limiter *ratelimit.Limiter, repo *records.Repository) *Service {
	return &Service{limiter: limiter, repo: repo, now: time.Now, newID: NewID}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewID returns a time-ordered prefix (base36 unix millis) plus 12 random
// hex characters.
func NewID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return strconv.FormatInt(t.UnixMilli(), 36) + "-" + suffix
}

// Submit runs the full pipeline for one request body. Errors are always
// *apperr.Error.
func (s *Service) Submit(ctx context.Context, body []byte, client Client) (*Receipt, error) {
	if !s.limiter.Allow(ctx, client.IP) {
		metrics.Submissions.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		logger.Warnw("submission rate limited", "ip", client.IP)
		return nil, apperr.RateLimited("Too many submissions. Please try again later.", s.limiter.Window())
	}

	in, missing, err := parseInput(body)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		e := apperr.BadRequest("Invalid request body")
		e.Err = err
		return nil, e
	}
	if len(missing) > 0 {
		metrics.Submissions.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		return nil, apperr.BadRequest("Missing required fields: "+strings.Join(missing, ", "), missing...)
	}

	fields := validation.Fields{
		Name:       sanitizeText(string(in.Name)),
		Father:     sanitizeText(string(in.Father)),
		DOB:        sanitizeText(string(in.DOB)),
		Mobile:     validation.DigitsOnly(string(in.Mobile)),
		NationalID: validation.DigitsOnly(string(in.NationalID)),
	}

	now := s.now().UTC()
	if violations := validation.ValidateAll(fields, now); len(violations) > 0 {
		metrics.Submissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, apperr.Validation(violations)
	}

	dob, _ := validation.ParseDOB(fields.DOB)
	rec := &records.Record{
		ID:         s.newID(now),
		Name:       fields.Name,
		Father:     fields.Father,
		DOB:        dob.Format(validation.DateLayout),
		Mobile:     fields.Mobile,
		NationalID: fields.NationalID,
		Timestamp:  now,
		IP:         client.IP,
		UserAgent:  truncate(client.UserAgent, MaxFieldLength),
	}

	if err := s.persist(ctx, rec); err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomeError).Inc()
		logger.Errorf("submission %s: %v", rec.ID, err)
		return nil, apperr.Internal("Failed to save submission", err)
	}

	metrics.Submissions.WithLabelValues(metrics.OutcomeAccepted).Inc()
	logger.Infow("submission accepted", "id", rec.ID, "ip", client.IP, "nationalId", logger.MaskDigits(rec.NationalID))
	return &Receipt{ID: rec.ID, Timestamp: rec.Timestamp, Name: rec.Name}, nil
}

// persist writes record, index, recent list and stats in that order. A
// failure part-way leaves earlier writes in place; an orphan record is
// preferred over losing accepted data.
func (s *Service) persist(ctx context.Context, rec *records.Record) error {
	if err := s.repo.Save(ctx, rec); err != nil {
		return err
	}
	if err := s.repo.AppendIndex(ctx, rec.ID); err != nil {
		return err
	}
	if err := s.repo.PushRecent(ctx, rec.Summary()); err != nil {
		return err
	}
	_, err := s.repo.BumpStats(ctx, rec.Timestamp)
	return err
}
