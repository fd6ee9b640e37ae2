package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fake repo for testing
type fakeRepo struct {
	store   map[string]*Session
	deleted []string
	saveErr error
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	cp := *s
	f.store[s.ID] = &cp
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (*Session, error) {
	s, ok := f.store[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) Save(ctx context.Context, s *Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Create(ctx, s)
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.store, id)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService() (*Service, *fakeRepo, *clock) {
	repo := &fakeRepo{}
	c := &clock{t: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	return NewService(repo, 24*time.Hour).WithClock(c.now), repo, c
}

func TestCreateAndValidateSession(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "10.0.0.1", "Mozilla/5.0")
	require.NoError(t, err)
	require.Len(t, sess.ID, 64)
	require.True(t, sess.LoggedIn)
	require.Equal(t, sess.CreatedAt.Add(24*time.Hour), sess.ExpiresAt)

	got, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "10.0.0.1", got.IP)

	require.NoError(t, svc.Delete(ctx, sess.ID))
	got2, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestValidate_UnknownAndEmptyIDs(t *testing.T) {
	svc, _, _ := newTestService()
	for _, id := range []string{"", "nope"} {
		got, err := svc.Validate(context.Background(), id)
		require.NoError(t, err)
		require.Nil(t, got)
	}
}

func TestValidate_RefreshesActivityWithoutExtendingDeadline(t *testing.T) {
	svc, repo, c := newTestService()
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "ip", "ua")
	require.NoError(t, err)
	deadline := sess.ExpiresAt

	c.t = c.t.Add(23 * time.Hour)
	got, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, repo.store[sess.ID].LastActivity.Equal(c.t))
	require.Equal(t, deadline, repo.store[sess.ID].ExpiresAt)

	// activity at 23h does not buy more time
	c.t = c.t.Add(61 * time.Minute)
	got, err = svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestValidate_ExpiredSessionIsDeleted(t *testing.T) {
	svc, repo, c := newTestService()
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "ip", "ua")
	require.NoError(t, err)

	c.t = c.t.Add(24*time.Hour + time.Second)
	got, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, []string{sess.ID}, repo.deleted)
	require.NotContains(t, repo.store, sess.ID)
}

func TestValidate_RefreshFailureStillValid(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "ip", "ua")
	require.NoError(t, err)

	repo.saveErr = errors.New("store down")
	got, err := svc.Validate(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}
