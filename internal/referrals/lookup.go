package referrals

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// referrerStore is the read surface of the shared referrer index. The account
// service owns the writes.
type referrerStore interface {
	Get(ctx context.Context, key string) (string, error)
	ReferrerKey(accountID string) string
}

// RedisReferrers resolves referrers from the Redis referrer index.
type RedisReferrers struct {
	store referrerStore
}

func NewRedisReferrers(store referrerStore) (*RedisReferrers, error) {
	if store == nil {
		return nil, errors.New("redis store required")
	}
	return &RedisReferrers{store: store}, nil
}

func (r *RedisReferrers) ReferrerOf(ctx context.Context, accountID string) (string, bool, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", false, nil
	}
	value, err := r.store.Get(ctx, r.store.ReferrerKey(accountID))
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	value = strings.TrimSpace(value)
	return value, value != "", nil
}
