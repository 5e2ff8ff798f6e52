package middleware

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"motoreg/utils"
)

// RateLimiter limits requests per caller per minute. Callers are keyed by
// user id once authenticated, by IP otherwise. Counters live in storage when
// given, in memory otherwise.
func RateLimiter(max int, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return rateLimitKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			utils.LogEvent("rate_limit_hit", map[string]interface{}{
				"caller":     rateLimitKey(c),
				"endpoint":   c.Path(),
				"user_agent": c.Get(fiber.HeaderUserAgent),
			})
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please wait before trying again.",
				"retry_after": "1 minute",
			})
		},
		Storage: storage,
	})
}

func rateLimitKey(c *fiber.Ctx) string {
	if id := IdentityFrom(c); id != nil {
		return "ratelimit:user:" + id.UserID
	}
	return "ratelimit:ip:" + c.IP()
}

// RedisStorage implements fiber.Storage for Redis
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// limiterKeySpace keeps limiter keys apart from records stored under the
// same base prefix, so Reset only drops counters.
const limiterKeySpace = "limiter:"

func NewRedisStorage(client *redis.Client, basePrefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: basePrefix + limiterKeySpace}
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	val, err := r.client.Get(context.Background(), r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return r.client.Set(context.Background(), r.prefix+key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), r.prefix+key).Err()
}

// Reset drops every key under the storage prefix.
func (r *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op: the client is shared with the record store.
func (r *RedisStorage) Close() error {
	return nil
}
