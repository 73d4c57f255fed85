package ports

import (
	"context"
	"field-route-service/internal/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, evt domain.RouteEvent) error
}

type EventSubscriber interface {
	// Subscribe returns a channel of events and a func that ends the subscription.
	Subscribe(ctx context.Context) (<-chan domain.RouteEvent, func(), error)
}
