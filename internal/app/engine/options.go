package engine

import (
	"time"

	"github.com/tradekit/clob/pkg/config"
)

// Options represents configuration options for the Engine.
type Options struct {
	// SnapshotInterval is the longest the engine goes between snapshots
	// while orders keep arriving.
	SnapshotInterval time.Duration
	// SnapshotOffsetDelta forces a snapshot after this many applied order
	// requests, independent of the interval.
	SnapshotOffsetDelta int64
	// ValidateBooks runs the full book invariant check after every applied
	// request and logs any breach. Debug aid.
	ValidateBooks bool
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		SnapshotInterval:    30 * time.Second,
		SnapshotOffsetDelta: 1000,
	}
}

// OptionsFromConfig maps the snapshot configuration onto engine options,
// filling gaps from the defaults.
func OptionsFromConfig(cfg config.SnapshotConfig) *Options {
	options := DefaultEngineOptions()

	if cfg.Interval > 0 {
		options.SnapshotInterval = cfg.Interval
	}
	if cfg.OffsetDelta > 0 {
		options.SnapshotOffsetDelta = cfg.OffsetDelta
	}

	return options
}
