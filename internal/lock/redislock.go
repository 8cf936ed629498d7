package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by TryWithLock when another holder owns the key.
var ErrHeld = errors.New("lock: already held")

// unlock deletes the key only while it still carries the holder's token, so a
// holder whose TTL expired cannot drop someone else's lock.
var unlock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker is a Redis-backed mutual exclusion helper. Keys are namespaced with
// Prefix.
type Locker struct {
	R      *redis.Client
	Prefix string
}

// TryWithLock runs fn while holding key for at most ttl. It never waits: if
// the key is taken it returns ErrHeld without calling fn. The lock is released
// when fn returns, even with an error or a cancelled ctx.
func (l Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key = l.Prefix + key
	token := uuid.NewString()

	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer func() {
		_ = unlock.Run(context.WithoutCancel(ctx), l.R, []string{key}, token).Err()
	}()
	return fn(ctx)
}
