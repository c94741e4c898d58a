package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishConsumeInbound(t *testing.T) {
	b := NewMessageBus()

	b.PublishInbound(&InboundMessage{Channel: "telegram", SenderID: "1", Content: "Products"})
	if b.InboundSize() != 1 {
		t.Errorf("InboundSize = %d, want 1", b.InboundSize())
	}

	msg, err := b.ConsumeInbound(context.Background())
	if err != nil {
		t.Fatalf("ConsumeInbound: %v", err)
	}
	if msg.Content != "Products" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("publish should default the timestamp")
	}
}

func TestConsumeInboundCancelled(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.ConsumeInbound(ctx); err == nil {
		t.Error("cancelled consume should fail")
	}
}

func TestDispatchOutboundBySubscriber(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telegram := make(chan *OutboundMessage, 1)
	slack := make(chan *OutboundMessage, 1)
	b.Subscribe("telegram", func(m *OutboundMessage) { telegram <- m })
	b.Subscribe("slack", func(m *OutboundMessage) { slack <- m })

	go b.DispatchOutbound(ctx)
	b.PublishOutbound(&OutboundMessage{Channel: "telegram", ChatID: "9", Content: "hi"})

	select {
	case m := <-telegram:
		if m.ChatID != "9" || m.Content != "hi" {
			t.Errorf("dispatched = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never dispatched")
	}

	select {
	case m := <-slack:
		t.Errorf("slack received %+v, want nothing", m)
	default:
	}
}
