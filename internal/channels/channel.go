package channels

import (
	"context"
	"strings"

	"github.com/kioskbot/kiosk/internal/bus"
)

// Channel defines the interface for chat platforms (Telegram, Slack, WhatsApp).
type Channel interface {
	// Name returns the channel name (e.g. "telegram").
	Name() string
	// Start starts the channel listener.
	Start(ctx context.Context) error
	// Stop stops the channel listener.
	Stop() error
	// Send sends a message to a specific chat.
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// BaseChannel provides common functionality for channels.
type BaseChannel struct {
	Bus *bus.MessageBus
}

// keyboardText renders a keyboard grid as plain text for platforms without
// reply keyboards. Users answer by typing the button label.
func keyboardText(content string, grid [][]string) string {
	if len(grid) == 0 {
		return content
	}
	var b strings.Builder
	b.WriteString(content)
	b.WriteString("\n")
	for _, row := range grid {
		b.WriteString("\n")
		b.WriteString("[ " + strings.Join(row, " ]  [ ") + " ]")
	}
	b.WriteString("\n\nReply with a button label.")
	return b.String()
}
