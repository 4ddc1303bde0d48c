package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/tradekit/clob/internal/domain/snapshot/v1"
	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/logger"
	"github.com/tradekit/clob/pkg/redis"
)

// RedisStore persists engine snapshots under a single Redis key.
type RedisStore struct {
	key         string
	logger      logger.Interface
	redisclient redis.Client
}

// NewRedisStore creates a snapshot store over the given Redis client. The
// key is the full Redis key the snapshot lives under.
func NewRedisStore(redisclient redis.Client, key string, log logger.Interface) *RedisStore {
	return &RedisStore{
		key:         key,
		redisclient: redisclient,
		logger:      log,
	}
}

// Store serialises the snapshot and stores it in Redis.
func (s *RedisStore) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		})
		return errors.NewTracer(string(errors.SnapshotMarshalError)).Wrap(err)
	}

	if err := s.redisclient.Set(ctx, s.key, buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "action",
			Value: "store snapshot",
		})
		return errors.NewTracer(string(errors.SnapshotStoreError)).Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot stored", logger.Field{
		Key:   "key",
		Value: s.key,
	}, logger.Field{
		Key:   "orderOffset",
		Value: snapshot.OrderOffset,
	}, logger.Field{
		Key:   "books",
		Value: len(snapshot.Books),
	})

	return nil
}

// LoadStore loads the snapshot from Redis, or (nil, nil) when none exists.
func (s *RedisStore) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer(string(errors.SnapshotLoadError)).Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found", logger.Field{
			Key:   "key",
			Value: s.key,
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "key",
			Value: s.key,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer(string(errors.SnapshotUnmarshalError)).Wrap(err)
	}

	return &snapshot, nil
}

// Close is a no-op; the Redis client's lifecycle belongs to its owner.
func (s *RedisStore) Close() error {
	return nil
}
