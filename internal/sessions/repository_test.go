package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/studentform/studentform/backend/go-services/internal/kv"
)

func newRedisRepo(t *testing.T) (*KVRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return NewKVRepository(kv.NewRedisStore(client, ""), "test:session:"), m
}

func TestKVRepository_CreateGetDelete(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	s := &Session{
		ID:        "s1",
		LoggedIn:  true,
		IP:        "10.0.0.1",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(5 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))
	require.True(t, m.Exists("test:session:s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, s.IP, got.IP)
	require.True(t, got.LoggedIn)

	// test deletion
	require.NoError(t, repo.Delete(ctx, "s1"))
	got2, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestKVRepository_TTLFollowsExpiresAt(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	s := &Session{
		ID:        "s2",
		LoggedIn:  true,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(1 * time.Second),
	}

	require.NoError(t, repo.Create(ctx, s))

	// visible immediately
	got, err := repo.Get(ctx, "s2")
	require.NoError(t, err)
	require.NotNil(t, got)

	// advance miniredis clock past TTL
	m.FastForward(2 * time.Second)

	got2, err := repo.Get(ctx, "s2")
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestKVRepository_SaveDoesNotExtendLifetime(t *testing.T) {
	store := kv.NewMemoryStore()
	repo := NewKVRepository(store, "")
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	repo.WithClock(func() time.Time { return now })
	ctx := context.Background()

	s := &Session{ID: "s3", LoggedIn: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, s))

	now = now.Add(50 * time.Minute)
	s.LastActivity = now
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "s3")
	require.NoError(t, err)
	require.Equal(t, s.ExpiresAt, got.ExpiresAt)
	require.True(t, got.LastActivity.Equal(now))
}

func TestService_StoredTTLUsesServiceClock(t *testing.T) {
	repo, m := newRedisRepo(t)
	now := time.Date(2020, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := NewService(repo, 2*time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	s, err := svc.CreateSession(ctx, "10.0.0.1", "Mozilla/5.0")
	require.NoError(t, err)
	require.Equal(t, 2*time.Hour, m.TTL("test:session:"+s.ID))

	now = now.Add(30 * time.Minute)
	got, err := svc.Validate(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 90*time.Minute, m.TTL("test:session:"+s.ID))
}
