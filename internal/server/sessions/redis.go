package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/homedash/internal/common"
)

const keyPrefix = "refresh:"

// RedisStore implements Store over a Redis client. Records are keyed by the
// SHA-256 of the token value, so the raw token never appears in Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore constructs a RedisStore bound to the given client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisStore) Save(ctx context.Context, token string, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	// GETDEL is the single atomic step of rotation: only one caller can
	// observe the value.
	userID, err := s.client.GetDel(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrSessionNotFound
		}
		return "", fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}
	return userID, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}
	return nil
}
