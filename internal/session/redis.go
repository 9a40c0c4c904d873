package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"orderhub-bot/internal/model"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces session keys in Redis.
const redisKeyPrefix = "orderhub:session:"

// RedisStore is a redis-backed implementation of Store, for deployments
// with more than one process sharing the conversation state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis session store. Sessions expire after ttl
// of inactivity via Redis key TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(accountID int64) string {
	return redisKeyPrefix + strconv.FormatInt(accountID, 10)
}

// Get retrieves the live session for an account, or (nil, nil).
func (s *RedisStore) Get(ctx context.Context, accountID int64) (*model.Session, error) {
	data, err := s.client.Get(ctx, redisKey(accountID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &sess, nil
}

// Put stores the session, refreshing its TTL.
func (s *RedisStore) Put(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(sess.AccountID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete destroys the account's session.
func (s *RedisStore) Delete(ctx context.Context, accountID int64) error {
	return s.client.Del(ctx, redisKey(accountID)).Err()
}

// Close closes the underlying redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
