package orderreader

import (
	"context"

	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/tradekit/clob/internal/domain/order-reader/v1"
	"github.com/tradekit/clob/pkg/config"
	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/logger"
)

// Reader consumes order requests from the order topic. It reads a single
// partition without a consumer group: the engine's snapshot records which
// offset was last applied, and the reader is repositioned from it on start.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface
}

// NewReader creates a Kafka reader for the order topic. It returns an
// implementation of the OrderReader interface.
func NewReader(cfg config.OrderKafkaConfig, log logger.Interface) Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     cfg.Topic,
		Partition: cfg.Partition,
		MinBytes:  1,
		MaxBytes:  10e6,
		// Replay the full order log when no snapshot repositions us.
		StartOffset: kafka.FirstOffset,
	})

	return Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset positions the reader on the order topic.
func (r Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return err
	}
	return nil
}

// ReadMessage reads the next message and parses it as an order request. A
// malformed payload returns the message together with an order_decode_error
// so the caller can skip past it.
func (r Reader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderRequest, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, nil, errors.NewTracer(string(errors.KafkaReadError)).Wrap(err)
	}

	req, err := orderreaderv1.FromBytes(msg.Value)
	if err != nil {
		r.logger.Error(err,
			logger.Field{Key: "operation", Value: "DecodeOrder"},
			logger.Field{Key: "offset", Value: msg.Offset},
			logger.Field{Key: "payload", Value: string(msg.Value)},
		)
		return msg, nil, errors.NewErrorDetails("malformed order payload", string(errors.OrderDecodeError), "ReadMessage")
	}

	req.Offset = msg.Offset

	r.logger.Info("ReadMessage",
		logger.Field{Key: "action", Value: req.Action},
		logger.Field{Key: "orderId", Value: req.OrderID},
		logger.Field{Key: "symbol", Value: req.Symbol},
		logger.Field{Key: "offset", Value: msg.Offset},
	)

	return msg, req, nil
}

// CommitMessages is a no-op: the reader has no consumer group, and the
// applied offset is persisted inside the engine snapshot instead.
func (r Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return nil
}

// Close properly closes the Kafka reader.
func (r Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}
