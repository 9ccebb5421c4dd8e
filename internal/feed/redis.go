package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betpulse/betpulse-engine/internal/market"
)

// RedisOddsFeed reads live quotes the odds pipeline writes into Redis.
type RedisOddsFeed struct {
	client     *redis.Client
	staleAfter time.Duration
}

// NewRedisOddsFeed wraps a Redis client. Quotes older than staleAfter are
// reported as ErrStale so money signals never run on dead odds.
func NewRedisOddsFeed(client *redis.Client, staleAfter time.Duration) *RedisOddsFeed {
	return &RedisOddsFeed{client: client, staleAfter: staleAfter}
}

// ConnectRedis dials and pings a Redis instance.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func quoteKey(ticker string) string { return "odds:market:" + ticker }

// CurrentOdds returns the live quote for a market.
func (f *RedisOddsFeed) CurrentOdds(ctx context.Context, ticker string) (market.Quote, error) {
	b, err := f.client.Get(ctx, quoteKey(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return market.Quote{}, fmt.Errorf("market %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return market.Quote{}, fmt.Errorf("odds lookup %s: %w", ticker, err)
	}

	var q market.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return market.Quote{}, fmt.Errorf("decode quote %s: %w", ticker, err)
	}
	if f.staleAfter > 0 && time.Since(q.UpdatedAt) > f.staleAfter {
		return q, fmt.Errorf("market %s updated %s ago: %w", ticker, time.Since(q.UpdatedAt).Round(time.Second), ErrStale)
	}
	return q, nil
}

// PutQuote writes a quote back to the cache. The Kafka line-tick path uses
// it so polled lookups and push updates stay consistent.
func (f *RedisOddsFeed) PutQuote(ctx context.Context, q market.Quote, ttl time.Duration) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	return f.client.Set(ctx, quoteKey(q.Ticker), b, ttl).Err()
}
