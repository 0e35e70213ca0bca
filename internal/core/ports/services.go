package ports

import (
	"context"

	"github.com/basobaas/plotline/internal/core/domain"
)

// Geocoder resolves a coordinate to a human-readable address. Lookups are
// best-effort: callers must tolerate errors and partial results.
type Geocoder interface {
	Reverse(ctx context.Context, point domain.GeoPoint) (domain.Address, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPlotSubmitted(ctx context.Context, plot *domain.Plot) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePlotSubmitted(ctx context.Context, handler func(ctx context.Context, plot *domain.Plot) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, recipientID, title, body string) error
}
