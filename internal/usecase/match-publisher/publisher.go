package matchpublisher

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"

	matchpublisherv1 "github.com/tradekit/clob/internal/domain/match-publisher/v1"
	"github.com/tradekit/clob/pkg/config"
	"github.com/tradekit/clob/pkg/errors"
	"github.com/tradekit/clob/pkg/logger"
)

// Publisher publishes match events to the match topic, keyed by symbol so
// all events of one book land on one partition in order.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewPublisher creates a Kafka publisher for the match topic.
func NewPublisher(cfg config.MatchKafkaConfig, log logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishMatchEvent publishes a single match event. A missing event id or
// timestamp is stamped here, so callers only fill the trade fields.
func (p *Publisher) PublishMatchEvent(ctx context.Context, event *matchpublisherv1.MatchEvent) error {
	if event.EventID == "" {
		event.EventID = ulid.Make().String()
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: matchpublisherv1.ToBytes(event),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "matchEvent", Value: event},
		)
		return errors.NewTracer(string(errors.KafkaWriteError)).Wrap(err)
	}

	return nil
}

// Close properly closes the Kafka writer.
func (p *Publisher) Close() error {
	if err := p.kafkaWriter.Close(); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "operation", Value: "Close"},
		)
		return err
	}
	return nil
}
