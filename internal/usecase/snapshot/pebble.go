package snapshot

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"

	snapshotv1 "github.com/tradekit/clob/internal/domain/snapshot/v1"
	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/logger"
)

var pebbleSnapshotKey = []byte("snapshot")

// PebbleStore persists engine snapshots in a local Pebble database, for
// deployments that keep durability on the engine host instead of Redis.
type PebbleStore struct {
	db     *pebble.DB
	logger logger.Interface
}

// NewPebbleStore opens (or creates) the Pebble database at path.
func NewPebbleStore(path string, log logger.Interface) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "path",
			Value: path,
		})
		return nil, errors.NewTracer(string(errors.PebbleOpenError)).Wrap(err)
	}

	return &PebbleStore{
		db:     db,
		logger: log,
	}, nil
}

// Store serialises the snapshot and writes it synchronously, so a crash
// right after a snapshot never loses it.
func (s *PebbleStore) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err)
		return errors.NewTracer(string(errors.SnapshotMarshalError)).Wrap(err)
	}

	if err := s.db.Set(pebbleSnapshotKey, buf, pebble.Sync); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "store snapshot",
		})
		return errors.NewTracer(string(errors.PebbleSetError)).Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot stored", logger.Field{
		Key:   "orderOffset",
		Value: snapshot.OrderOffset,
	}, logger.Field{
		Key:   "books",
		Value: len(snapshot.Books),
	})

	return nil
}

// LoadStore loads the snapshot, or (nil, nil) when none has been written.
func (s *PebbleStore) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, closer, err := s.db.Get(pebbleSnapshotKey)
	if err == pebble.ErrNotFound {
		s.logger.WarnContext(ctx, "no snapshot found")
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer(string(errors.PebbleGetError)).Wrap(err)
	}
	defer closer.Close()

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer(string(errors.SnapshotUnmarshalError)).Wrap(err)
	}

	return &snapshot, nil
}

// Close closes the Pebble database.
func (s *PebbleStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.NewTracer(string(errors.PebbleCloseError)).Wrap(err)
	}
	return nil
}
