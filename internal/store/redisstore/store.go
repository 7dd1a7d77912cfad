// Package redisstore backs webhook idempotency. Twilio retries delivery on
// slow responses, so each inbound MessageSid is claimed once in redis before
// the command is processed.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeTTL = 24 * time.Hour

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// FirstDelivery reports whether this MessageSid has not been seen before,
// claiming it atomically so a webhook retry is processed exactly once.
func (s *Store) FirstDelivery(ctx context.Context, messageSid string) (bool, error) {
	return s.rdb.SetNX(ctx, "sms:sid:"+messageSid, 1, dedupeTTL).Result()
}
