package events

import (
	"context"
	"testing"

	"github.com/kioskbot/kiosk/internal/audit"
)

func TestChannelPublisher(t *testing.T) {
	p := NewChannelPublisher(2)

	if err := p.Publish(context.Background(), audit.Event{EventType: audit.EventPress, SenderID: "1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Publish(context.Background(), audit.Event{EventType: audit.EventReload}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Publish(context.Background(), audit.Event{EventType: audit.EventReply}); err == nil {
		t.Error("full buffer should fail")
	}

	ev := <-p.Events
	if ev.EventType != audit.EventPress || ev.SenderID != "1" {
		t.Errorf("first event = %+v", ev)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Remaining buffered event is still readable after close.
	if ev := <-p.Events; ev.EventType != audit.EventReload {
		t.Errorf("second event = %+v", ev)
	}
}
