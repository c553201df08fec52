package ports

import (
	"context"

	"github.com/samirrijal/trajprep/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSampleBatch(ctx context.Context, batch *domain.SampleBatch) error
	PublishSpeedProfile(ctx context.Context, profile *domain.SpeedProfile) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeSampleBatches(ctx context.Context, handler func(ctx context.Context, batch *domain.SampleBatch) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
