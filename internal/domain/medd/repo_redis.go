package medd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore caches check results for ttl; results older than a visit
// are not worth keeping.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func key(appointmentID uuid.UUID) string {
	return "medd:appointment:" + appointmentID.String()
}

func (s *redisStore) Get(ctx context.Context, appointmentID uuid.UUID) (*Info, error) {
	raw, err := s.client.Get(ctx, key(appointmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get medd result: %w", err)
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode medd result: %w", err)
	}
	return &info, nil
}

func (s *redisStore) Put(ctx context.Context, appointmentID uuid.UUID, info *Info) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode medd result: %w", err)
	}
	if err := s.client.Set(ctx, key(appointmentID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store medd result: %w", err)
	}
	return nil
}
