package messaging

import "context"

// Broker publishes events to interested subsystems. The hub uses it
// to hand emergency-access notification events to the (external)
// patient notification service.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
