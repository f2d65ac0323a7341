// Package locker serializes work on one key across API replicas.
package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("key is locked")

// Locker acquires short-lived exclusive locks.
type Locker interface {
	// Acquire returns a release func on success and ErrLocked when the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// New returns a redis-backed locker, or a no-op locker when client is nil.
func New(client *redis.Client) Locker {
	if client == nil {
		return Noop{}
	}
	return &Redis{client: client, prefix: "billpay:lock:"}
}

// Noop grants every lock. The ledger's conditional writes remain the real guard.
type Noop struct{}

func (Noop) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return func() {}, nil
}

// Redis implements Locker with SET NX and a token-checked release.
type Redis struct {
	client *redis.Client
	prefix string
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	fullKey := r.prefix + key

	ok, err := r.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err()
	}
	return release, nil
}
