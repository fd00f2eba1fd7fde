package ingest

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConversationLocker serializes the find-active-or-create step per
// conversation scope, so two concurrent deliveries in the same thread
// cannot both open a card.
type ConversationLocker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool)
}

const claimPrefix = "ingest:claim:"

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker builds a SETNX claim lock with a TTL so a crashed holder
// cannot wedge the conversation.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) ConversationLocker {
	return &redisLocker{client: client, ttl: ttl, logger: logger}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), bool) {
	fullKey := claimPrefix + key
	for attempt := 0; attempt < 5; attempt++ {
		ok, err := l.client.SetNX(ctx, fullKey, "1", l.ttl).Result()
		if err != nil {
			// Redis down: proceed unlocked rather than dropping the message.
			l.logger.Warn("conversation claim unavailable", zap.String("key", key), zap.Error(err))
			return func() {}, false
		}
		if ok {
			return func() { l.client.Del(context.Background(), fullKey) }, true
		}
		select {
		case <-ctx.Done():
			return func() {}, false
		case <-time.After(100 * time.Millisecond):
		}
	}
	l.logger.Warn("conversation claim contention timeout", zap.String("key", key))
	return func() {}, false
}

type noopLocker struct{}

// NewNoopLocker returns a locker that never blocks, for deployments without
// Redis and for tests.
func NewNoopLocker() ConversationLocker {
	return noopLocker{}
}

func (noopLocker) Acquire(context.Context, string) (func(), bool) {
	return func() {}, true
}
