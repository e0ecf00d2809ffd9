package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climbing-tracker/internal/grade"
	"github.com/climbing-tracker/internal/ranking"
)

func newTestCache(t *testing.T) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, "test", time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func sampleEntries() []ranking.Entry {
	g := grade.Grade("7a")
	return []ranking.Entry{
		{Rank: 1, UserID: "alice", TotalPoints: 300, TotalClimbs: 2, HardestGrade: &g},
		{Rank: 2, UserID: "bob", TotalPoints: 300, TotalClimbs: 1},
		{Rank: 3, UserID: "carol", TotalPoints: 100, TotalClimbs: 1},
	}
}

func TestStoreAndReadWindow(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowAll, sampleEntries()))

	entries, total, found, err := cache.GetRange(ctx, ranking.WindowAll, 0, 10)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, total)
	assert.Equal(t, sampleEntries(), entries)

	page, _, _, err := cache.GetRange(ctx, ranking.WindowAll, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].UserID)
	assert.Equal(t, 2, page[0].Rank)
}

func TestMissingWindowIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	_, _, found, err := cache.GetRange(ctx, ranking.WindowWeekly, 0, 10)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.GetUserRank(ctx, ranking.WindowWeekly, "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEmptyWindowIsStillMaterialised(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowMonthly, nil))
	entries, total, found, err := cache.GetRange(ctx, ranking.WindowMonthly, 0, 10)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, total)
	assert.Empty(t, entries)
}

func TestGetUserRank(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowAll, sampleEntries()))

	rank, found, err := cache.GetUserRank(ctx, ranking.WindowAll, "carol")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, rank)

	rank, found, err = cache.GetUserRank(ctx, ranking.WindowAll, "dave")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, rank)
}

func TestStoreWindowReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowAll, sampleEntries()))
	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowAll, []ranking.Entry{{Rank: 1, UserID: "dave", TotalPoints: 5, TotalClimbs: 1}}))

	entries, total, _, err := cache.GetRange(ctx, ranking.WindowAll, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "dave", entries[0].UserID)
}

func TestWindowsExpireAndInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowAll, sampleEntries()))

	assert.True(t, mr.Exists("test:leaderboard:all:ranks"))
	mr.FastForward(2 * time.Minute)
	_, _, found, err := cache.GetRange(ctx, ranking.WindowAll, 0, 10)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.StoreWindow(ctx, ranking.WindowAll, sampleEntries()))
	require.NoError(t, cache.Invalidate(ctx))
	_, _, found, err = cache.GetRange(ctx, ranking.WindowAll, 0, 10)
	require.NoError(t, err)
	assert.False(t, found)
}
