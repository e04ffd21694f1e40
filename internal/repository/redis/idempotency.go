package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemNS = "slotsale:v1:idem"

func KeyIdem(scope, idemKey string) string {
	return fmt.Sprintf("%s:%s:%s", idemNS, scope, idemKey)
}

type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, "LOCK", lockTTL).Result()
}

// SaveResult stores the response for key together with the fingerprint of
// the request that produced it.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key, fingerprint, jsonPayload string) error {
	val := "RES:" + fingerprint + ":" + jsonPayload
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

// GetResult returns a stored response and the fingerprint it was saved
// with. ok is false while the key is only locked or absent.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (payload, fingerprint string, ok bool, err error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}

	rest, found := strings.CutPrefix(v, "RES:")
	if !found {
		return "", "", false, nil
	}

	fingerprint, payload, found = strings.Cut(rest, ":")
	if !found {
		return "", "", false, nil
	}

	return payload, fingerprint, true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
