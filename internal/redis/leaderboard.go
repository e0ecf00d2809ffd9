package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/ranking"
)

// LeaderboardCache materialises computed leaderboard windows in Redis. Each window is a
// sorted set of user ids scored by rank plus a hash of serialized entries, replaced as a unit.
type LeaderboardCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewLeaderboardCache connects to Redis
func NewLeaderboardCache(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewWithClient(client, cfg.KeyPrefix, cfg.TTL, logger), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *LeaderboardCache {
	return &LeaderboardCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Close closes the Redis connection
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *LeaderboardCache) ranksKey(w ranking.Window) string {
	return fmt.Sprintf("%s:leaderboard:%s:ranks", c.prefix, w)
}

func (c *LeaderboardCache) entriesKey(w ranking.Window) string {
	return fmt.Sprintf("%s:leaderboard:%s:entries", c.prefix, w)
}

// metaKey marks a window as materialised, even when it has no entries
func (c *LeaderboardCache) metaKey(w ranking.Window) string {
	return fmt.Sprintf("%s:leaderboard:%s:meta", c.prefix, w)
}

// StoreWindow atomically replaces a window with freshly ranked entries
func (c *LeaderboardCache) StoreWindow(ctx context.Context, w ranking.Window, entries []ranking.Entry) error {
	ranksKey, entriesKey, metaKey := c.ranksKey(w), c.entriesKey(w), c.metaKey(w)

	members := make([]redis.Z, 0, len(entries))
	fields := make([]any, 0, 2*len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling entry: %w", err)
		}
		members = append(members, redis.Z{Score: float64(e.Rank), Member: e.UserID})
		fields = append(fields, e.UserID, data)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, ranksKey, entriesKey, metaKey)
	if len(entries) > 0 {
		pipe.ZAdd(ctx, ranksKey, members...)
		pipe.HSet(ctx, entriesKey, fields...)
		pipe.Expire(ctx, ranksKey, c.ttl)
		pipe.Expire(ctx, entriesKey, c.ttl)
	}
	pipe.HSet(ctx, metaKey, "computed_at", time.Now().UTC().Format(time.RFC3339), "count", len(entries))
	pipe.Expire(ctx, metaKey, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing leaderboard window: %w", err)
	}
	return nil
}

// GetRange returns limit entries starting at offset and the window size. found is false
// when the window is not materialised.
func (c *LeaderboardCache) GetRange(ctx context.Context, w ranking.Window, offset, limit int) (entries []ranking.Entry, total int, found bool, err error) {
	pipe := c.client.Pipeline()
	existsCmd := pipe.Exists(ctx, c.metaKey(w))
	cardCmd := pipe.ZCard(ctx, c.ranksKey(w))
	idsCmd := pipe.ZRange(ctx, c.ranksKey(w), int64(offset), int64(offset+limit-1))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("reading leaderboard window: %w", err)
	}
	if existsCmd.Val() == 0 {
		return nil, 0, false, nil
	}

	ids := idsCmd.Val()
	entries = make([]ranking.Entry, 0, len(ids))
	if len(ids) == 0 {
		return entries, int(cardCmd.Val()), true, nil
	}

	values, err := c.client.HMGet(ctx, c.entriesKey(w), ids...).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("reading leaderboard entries: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// the hash expired between the two reads
			c.logger.WarnContext(ctx, "leaderboard entry missing", "window", w, "user_id", ids[i])
			return nil, 0, false, nil
		}
		var e ranking.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, 0, false, fmt.Errorf("decoding leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, int(cardCmd.Val()), true, nil
}

// GetUserRank returns a user's rank in a window, 0 when absent. found is false when the
// window is not materialised.
func (c *LeaderboardCache) GetUserRank(ctx context.Context, w ranking.Window, userID string) (rank int, found bool, err error) {
	pipe := c.client.Pipeline()
	existsCmd := pipe.Exists(ctx, c.metaKey(w))
	scoreCmd := pipe.ZScore(ctx, c.ranksKey(w), userID)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, false, fmt.Errorf("reading user rank: %w", err)
	}
	if existsCmd.Val() == 0 {
		return 0, false, nil
	}
	score, err := scoreCmd.Result()
	if errors.Is(err, redis.Nil) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading user rank: %w", err)
	}
	return int(score), true, nil
}

// Invalidate drops every materialised window
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, 3*len(ranking.Windows))
	for _, w := range ranking.Windows {
		keys = append(keys, c.ranksKey(w), c.entriesKey(w), c.metaKey(w))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating leaderboards: %w", err)
	}
	return nil
}
