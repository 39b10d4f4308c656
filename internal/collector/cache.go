package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"DeclineWatch/internal/model"
)

// ErrCacheMiss is returned by a CacheStore when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheStore is the byte-level backend of CachedFetcher.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache stores fetched bars in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and pings it. A failed ping returns an error
// so the caller can run without a cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Printf("[INFO] connected to redis at %s", addr)
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedFetcher serves bars from a CacheStore and fills it on miss. Cache
// failures fall through to the wrapped Fetcher.
type CachedFetcher struct {
	Inner Fetcher
	Store CacheStore
	TTL   time.Duration
}

// NewCachedFetcher wraps f with the given store and TTL.
func NewCachedFetcher(f Fetcher, store CacheStore, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{Inner: f, Store: store, TTL: ttl}
}

func (c *CachedFetcher) Name() string { return c.Inner.Name() + "+cache" }

func cacheKey(source string, stock model.Stock, days int) string {
	return fmt.Sprintf("declinewatch:bars:%s:%s:%s:%d", source, stock.Market, stock.Code, days)
}

func (c *CachedFetcher) FetchDailyBars(ctx context.Context, stock model.Stock, days int) ([]model.OHLCV, error) {
	key := cacheKey(c.Inner.Name(), stock, days)

	data, err := c.Store.Get(ctx, key)
	switch {
	case err == nil:
		var bars []model.OHLCV
		if jerr := json.Unmarshal(data, &bars); jerr == nil {
			return bars, nil
		}
		log.Printf("[WARN] cache entry %s is corrupt, refetching", key)
	case !errors.Is(err, ErrCacheMiss):
		log.Printf("[WARN] cache get %s: %v", key, err)
	}

	bars, err := c.Inner.FetchDailyBars(ctx, stock, days)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bars); err == nil {
		if err := c.Store.Set(ctx, key, data, c.TTL); err != nil {
			log.Printf("[WARN] cache set %s: %v", key, err)
		}
	}
	return bars, nil
}
