// Package ratelimit throttles public endpoints per client using ulule/limiter.
package ratelimit

import (
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// New builds a limiter for rate, formatted the ulule way ("30-M", "5-S").
// Counters live in Redis when rdb is set and in process memory otherwise.
func New(rate string, rdb *redis.Client, prefix string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(strings.TrimSpace(rate))
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", rate, err)
	}
	opts := limiter.StoreOptions{Prefix: prefix}
	var store limiter.Store
	if rdb != nil {
		store, err = limiterredis.NewStoreWithOptions(rdb, opts)
		if err != nil {
			return nil, fmt.Errorf("ratelimit: redis store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	return limiter.New(store, parsed), nil
}
