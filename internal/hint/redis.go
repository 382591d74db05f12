package hint

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"realm-server/internal/direction"
)

type redisStore struct {
	client *redis.Client
	window time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed debounce store. SET NX with the
// window as TTL makes the first writer for a key win atomically.
func NewRedisStore(client *redis.Client, window time.Duration, logger *zap.Logger) Store {
	return &redisStore{
		client: client,
		window: window,
		logger: logger.Named("HintDebounceStore"),
	}
}

func (s *redisStore) ShouldEmit(ctx context.Context, playerID, locationID uuid.UUID, dir direction.Direction) (Decision, error) {
	key := debounceKey(playerID, locationID, dir)
	set, err := s.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), s.window).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to update debounce key %s: %w", key, err)
	}
	if !set {
		s.logger.Debug("Exit generation hint debounced",
			zap.String("key", key),
			zap.Duration("window", s.window),
		)
		return Decision{Emit: false, DebounceHit: true}, nil
	}
	return Decision{Emit: true, DebounceHit: false}, nil
}
