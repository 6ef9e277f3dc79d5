// Package logging writes ledger notifications to the log. It stands in for a
// broker when none is configured and retains nothing.
package logging

import (
	"context"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
)

type Publisher struct {
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Publish logs the event at debug level and never fails.
func (p *Publisher) Publish(ctx context.Context, topic string, key string, event any) error {
	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Any("event", event),
	)
	return nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
