package events

import (
	"context"
	"encoding/json"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// Channel carries every route event so all API instances see every save.
const Channel = "routes:events"

var (
	_ ports.EventPublisher  = (*RedisBroker)(nil)
	_ ports.EventSubscriber = (*RedisBroker)(nil)
)

// RedisBroker publishes route events over Redis Pub/Sub.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis broker: parse url: %w", err)
	}
	return &RedisBroker{rdb: redis.NewClient(opt)}, nil
}

// NewRedisBrokerWithClient wraps an existing client.
func NewRedisBrokerWithClient(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) Publish(ctx context.Context, evt domain.RouteEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis broker: encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("redis broker: publish: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription before returning so no event
// published afterwards is missed.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan domain.RouteEvent, func(), error) {
	ps := b.rdb.Subscribe(ctx, Channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis broker: subscribe: %w", err)
	}

	out := make(chan domain.RouteEvent, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var evt domain.RouteEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				obs.Log(ctx).WithError(err).Warn("redis broker: dropping undecodable event")
				continue
			}
			select {
			case out <- evt:
			default:
			}
		}
	}()

	return out, func() { _ = ps.Close() }, nil
}
