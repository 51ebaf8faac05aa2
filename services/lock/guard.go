// Package locksvc keeps a report from being generated twice at the same time.
package locksvc

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core"
	"github.com/schoolrecords/sf10/core/report"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds keys in redis so that every API instance shares them.
// Keys expire after ttl in case a holder dies before releasing.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string // {key: token}
}

var _ report.Guard = (*RedisGuard)(nil)

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, tokens: make(map[string]string)}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	token := uuid.New().String()
	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis SETNX")
	}
	if ok {
		g.mu.Lock()
		g.tokens[key] = token
		g.mu.Unlock()
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	err := releaseScript.Run(ctx, g.client, []string{keyPrefix + key}, token).Err()
	if err != nil && err != redis.Nil {
		return errors.Wrap(err, "redis release")
	}
	return nil
}

// MemoryGuard holds keys in process. Enough for a single API instance.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ report.Guard = (*MemoryGuard)(nil)

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}

// NewRedisClient connects to the configured redis & checks it answers.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}
