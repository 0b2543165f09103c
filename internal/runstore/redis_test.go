package runstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a store connected to a miniredis instance
func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test-ns")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func runAt(t *testing.T, pipeline string, started time.Time) *RunRecord {
	t.Helper()
	r := NewRunRecord(pipeline, "housing", "Housing.csv")
	r.StartedAt = started
	return r
}

func TestNewRedisStore(t *testing.T) {
	t.Run("creates store successfully", func(t *testing.T) {
		store, _ := setupTestStore(t)
		assert.Equal(t, "test-ns", store.namespace)
		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewRedisStore(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})

	t.Run("rejects bad url", func(t *testing.T) {
		_, err := NewRedisStoreFromURL("http://nope", "ns")
		assert.Error(t, err)
	})
}

func TestRedisStore_UpsertAndGet(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	r := runAt(t, "house-price", time.UnixMilli(1700000000000).UTC())
	require.NoError(t, store.UpsertRun(ctx, r))

	assert.True(t, mr.Exists(RunKey("test-ns", r.ID)))
	members, err := mr.ZMembers(RunsIndexKey("test-ns"))
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, members)

	got, err := store.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	// Updates replace the record in place
	mse := 3.5
	r.Stage = StageRegister
	r.MSE = &mse
	r.Finish(StatusSucceeded, nil)
	r.EndedAt = time.UnixMilli(1700000060000).UTC()
	require.NoError(t, store.UpsertRun(ctx, r))

	got, err = store.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)
	require.NotNil(t, got.MSE)
	assert.Equal(t, 3.5, *got.MSE)

	members, err = mr.ZMembers(RunsIndexKey("test-ns"))
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisStore_UpsertRejectsInvalid(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.UpsertRun(context.Background(), &RunRecord{ID: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run record")
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	assert.True(t, IsNotFound(err))
}

func TestRedisStore_ListRuns(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	late := runAt(t, "house-price", base.Add(2*time.Hour))
	early := runAt(t, "house-price", base)
	middle := runAt(t, "airline-price", base.Add(time.Hour))
	middle.Finish(StatusGated, nil)
	for _, r := range []*RunRecord{late, early, middle} {
		require.NoError(t, store.UpsertRun(ctx, r))
	}

	all, err := store.ListRuns(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{early.ID, middle.ID, late.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	since, err := store.ListRuns(ctx, &Filter{Since: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	window, err := store.ListRuns(ctx, &Filter{Since: base.Add(30 * time.Minute), Until: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, middle.ID, window[0].ID)

	gated, err := store.ListRuns(ctx, &Filter{Status: StatusGated})
	require.NoError(t, err)
	require.Len(t, gated, 1)
	assert.Equal(t, "airline-price", gated[0].Pipeline)
}

func TestRedisStore_ListSkipsDanglingIndexEntries(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	r := runAt(t, "p", time.Now().UTC())
	require.NoError(t, store.UpsertRun(ctx, r))
	mr.Del(RunKey("test-ns", r.ID))

	runs, err := store.ListRuns(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRedisStore_ScanRunIDs(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	a := runAt(t, "p", time.Now().UTC())
	a.ID = "abcdef00-0000-4000-8000-000000000001"
	b := runAt(t, "p", time.Now().UTC())
	b.ID = "abcdef11-0000-4000-8000-000000000002"
	c := runAt(t, "p", time.Now().UTC())
	c.ID = "12345600-0000-4000-8000-000000000003"
	for _, r := range []*RunRecord{a, b, c} {
		require.NoError(t, store.UpsertRun(ctx, r))
	}

	ids, err := store.ScanRunIDs(ctx, "abcdef")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	ids, err = store.ScanRunIDs(ctx, "abcdef1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	ids, err = store.ScanRunIDs(ctx, "ffffff")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_NamespacesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	one, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "one")
	require.NoError(t, err)
	defer one.Close()
	two, err := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "two")
	require.NoError(t, err)
	defer two.Close()

	r := runAt(t, "p", time.Now().UTC())
	require.NoError(t, one.UpsertRun(ctx, r))

	_, err = two.GetRun(ctx, r.ID)
	assert.True(t, IsNotFound(err))
	runs, err := two.ListRuns(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRedisStore_SubscribeRunEvents(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := store.SubscribeRunEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	r := runAt(t, "house-price", time.UnixMilli(1700000000000).UTC())
	require.NoError(t, store.UpsertRun(ctx, r))

	select {
	case event := <-sub.Events():
		require.NotNil(t, event)
		assert.Equal(t, r.ID, event.ID)
		assert.Equal(t, StatusRunning, event.Status)
	case <-ctx.Done():
		t.Fatal("timed out waiting for run event")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}
