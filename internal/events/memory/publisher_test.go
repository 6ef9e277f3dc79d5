package memory

import (
	"context"
	"errors"
	"testing"
)

func TestPublisherRecordsByTopic(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher()

	_ = p.Publish(ctx, "project_funded", "p1", "a")
	_ = p.Publish(ctx, "project_closed", "p2", "b")
	_ = p.Publish(ctx, "project_funded", "p1", "c")

	if n := len(p.Messages()); n != 3 {
		t.Fatalf("messages = %d, want 3", n)
	}
	funded := p.Topic("project_funded")
	if len(funded) != 2 || funded[0].Event != "a" || funded[1].Event != "c" {
		t.Fatalf("funded = %+v", funded)
	}
}

func TestPublisherFailWith(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher()
	down := errors.New("down")

	p.FailWith(down)
	if err := p.Publish(ctx, "t", "k", 1); !errors.Is(err, down) {
		t.Fatalf("error = %v, want %v", err, down)
	}
	p.FailWith(nil)
	if err := p.Publish(ctx, "t", "k", 2); err != nil {
		t.Fatalf("publish after reset: %v", err)
	}
	if n := len(p.Messages()); n != 1 {
		t.Fatalf("messages = %d, want 1", n)
	}
}
