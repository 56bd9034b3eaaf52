package stats

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"

	"github.com/wricardo/klondike/game/engine"
)

// DefaultRedisKey is the hash holding the counters
const DefaultRedisKey = "klondike:stats"

const (
	fieldPlayed = "gamesPlayed"
	fieldWon    = "gamesWon"
)

// RedisStore keeps the counters in a Redis hash so several server processes
// share one tally
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedis connects to addr and verifies the connection with a ping
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client, ""), nil
}

// Load reads the counters. Missing or malformed fields read as zero.
func (r *RedisStore) Load(ctx context.Context) (engine.Stats, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return engine.Stats{}, fmt.Errorf("redis load stats: %w", err)
	}
	return engine.Stats{
		GamesPlayed: cast.ToInt(fields[fieldPlayed]),
		GamesWon:    cast.ToInt(fields[fieldWon]),
	}, nil
}

// Record increments both counters in one transaction
func (r *RedisStore) Record(ctx context.Context, playedDelta, wonDelta int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if playedDelta != 0 {
			pipe.HIncrBy(ctx, r.key, fieldPlayed, int64(playedDelta))
		}
		if wonDelta != 0 {
			pipe.HIncrBy(ctx, r.key, fieldWon, int64(wonDelta))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record stats: %w", err)
	}
	return nil
}

// Reset deletes the hash
func (r *RedisStore) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis reset stats: %w", err)
	}
	return nil
}

// Close releases the client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
