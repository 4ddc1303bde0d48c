package snapshotv1

import "context"

// Store defines the interface for persisting and loading engine snapshots.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=snapshotv1_mock
type Store interface {
	// Store persists the snapshot, replacing any previous one.
	Store(ctx context.Context, snapshot *Snapshot) error
	// LoadStore loads the latest snapshot, or (nil, nil) when none exists.
	LoadStore(ctx context.Context) (*Snapshot, error)
	// Close releases the backing store.
	Close() error
}
