package matchpublisherv1

import "context"

// MatchPublisher defines the interface for publishing match events to the
// match topic.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=matchpublisherv1_mock
type MatchPublisher interface {
	// PublishMatchEvent publishes a single match event.
	PublishMatchEvent(ctx context.Context, event *MatchEvent) error
	// Close closes the publisher.
	Close() error
}
