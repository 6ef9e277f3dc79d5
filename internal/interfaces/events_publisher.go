package interfaces

import "context"

// EventPublisher delivers ledger notifications. Delivery is best effort;
// the ledger never fails an operation because publishing failed.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
