package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotline/models"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when a session id resolves to nothing,
// usually because it expired or was closed.
var ErrNotFound = errors.New("booking session not found or expired")

const redisKeyPrefix = "bsession:"

// RedisKey renders the storage key for a session id.
func RedisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Store persists booking sessions. Implementations: redis in production,
// an in-memory map in tests.
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.BookingSession, error)
	Put(ctx context.Context, session *models.BookingSession, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore keeps sessions as JSON blobs with a TTL, the same way the
// rest of the session cache works.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.BookingSession, error) {
	data, err := s.Client.Get(ctx, RedisKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking session: %w", err)
	}
	var session models.BookingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse booking session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, session *models.BookingSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal booking session: %w", err)
	}
	if err := s.Client.Set(ctx, RedisKey(session.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store booking session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.Client.Del(ctx, RedisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete booking session: %w", err)
	}
	return nil
}
