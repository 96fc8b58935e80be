package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "helpdesk:session:"

// RedisStore keeps sessions as JSON strings that expire with the session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store using client. An empty prefix selects
// "helpdesk:session:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(token string) string { return r.prefix + token }

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	return r.write(ctx, s, "NX")
}

func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	return r.write(ctx, s, "XX")
}

func (r *RedisStore) write(ctx context.Context, s *Session, mode string) error {
	if s == nil || s.Token == "" {
		return ErrInvalidSession
	}
	if time.Until(s.ExpiresAt) <= 0 {
		return ErrSessionExpired
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return errors.Join(ErrEncoding, err)
	}

	err = r.client.SetArgs(ctx, r.key(s.Token), payload, redis.SetArgs{
		Mode:     mode,
		ExpireAt: s.ExpiresAt,
	}).Err()
	switch {
	case errors.Is(err, redis.Nil) && mode == "XX":
		return ErrSessionNotFound
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%w: token collision", ErrInvalidSession)
	case err != nil:
		return fmt.Errorf("session: redis write: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(token)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("session: redis read: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Join(ErrEncoding, err)
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}
