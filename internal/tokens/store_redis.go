package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ballot:poll_token:"

// RedisStore keeps tokens in Redis and lets key TTLs handle expiry.
type RedisStore struct {
	Client *redis.Client
	now    func() time.Time
}

type redisToken struct {
	PollID    string    `json:"poll_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisStore connects to redisURL (redis:// or rediss://) and pings it.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{Client: client, now: time.Now}, nil
}

func redisKey(value string) string {
	return redisKeyPrefix + value
}

func (s *RedisStore) Save(ctx context.Context, token Token) error {
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}
	payload, err := json.Marshal(redisToken{PollID: token.PollID, IssuedAt: token.IssuedAt, ExpiresAt: token.ExpiresAt})
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisKey(token.Value), payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, value string) (Token, error) {
	payload, err := s.Client.Get(ctx, redisKey(value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, err
	}
	var rec redisToken
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Token{}, fmt.Errorf("decode poll token: %w", err)
	}
	token := Token{Value: value, PollID: rec.PollID, IssuedAt: rec.IssuedAt, ExpiresAt: rec.ExpiresAt}
	if token.Expired(s.now()) {
		return Token{}, ErrNotFound
	}
	return token, nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.Client.Close()
}
