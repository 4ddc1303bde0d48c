package orderreaderv1

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// OrderReader defines the interface for reading order requests from the
// order topic.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=orderreaderv1_mock
type OrderReader interface {
	// ReadMessage reads the next message and returns it together with the
	// parsed order request, its offset stamped.
	ReadMessage(ctx context.Context) (kafka.Message, *OrderRequest, error)
	// SetOffset positions the reader on the order topic.
	SetOffset(offset int64) error
	// CommitMessages commits the messages after processing.
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	// Close closes the reader.
	Close() error
}
