// Package memory records published notifications in process for tests to
// assert against. It keeps every message, so servers use the logging
// publisher instead.
package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
)

// Message is one recorded notification.
type Message struct {
	Topic string
	Key   string
	Event any
}

// Publisher records every notification it receives.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(ctx context.Context, topic string, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, Message{Topic: topic, Key: key, Event: event})
	return nil
}

// FailWith makes later Publish calls return err until it is reset with nil.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Messages returns a copy of the recorded notifications.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := make([]Message, len(p.messages))
	copy(copied, p.messages)
	return copied
}

// Topic returns the recorded notifications for one topic.
func (p *Publisher) Topic(topic string) []Message {
	var result []Message
	for _, m := range p.Messages() {
		if m.Topic == topic {
			result = append(result, m)
		}
	}
	return result
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
