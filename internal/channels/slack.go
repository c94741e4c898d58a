package channels

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/kioskbot/kiosk/internal/bus"
	"github.com/kioskbot/kiosk/internal/config"
)

// SlackChannel connects over Socket Mode. Slack has no reply keyboards, so
// menus are rendered as text and users answer by typing the button label.
type SlackChannel struct {
	BaseChannel
	config config.SlackConfig
	api    *slack.Client
	sock   *socketmode.Client
}

func NewSlackChannel(cfg config.SlackConfig, messageBus *bus.MessageBus) *SlackChannel {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &SlackChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		api:         api,
		sock:        socketmode.New(api),
	}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Start(ctx context.Context) error {
	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("slack send failed", "chat_id", msg.ChatID, "error", err)
		}
	})

	go c.runEvents(ctx)
	go func() {
		if err := c.sock.RunContext(ctx); err != nil && ctx.Err() == nil {
			slog.Error("slack socket mode stopped", "error", err)
		}
	}()
	slog.Info("slack channel started")
	return nil
}

func (c *SlackChannel) Stop() error { return nil }

func (c *SlackChannel) runEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sock.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				c.sock.Ack(*evt.Request)
				ev, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok || ev.Type != slackevents.CallbackEvent {
					continue
				}
				if inner, ok := ev.InnerEvent.Data.(*slackevents.MessageEvent); ok {
					c.handleMessage(inner)
				}
			case socketmode.EventTypeSlashCommand:
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				c.sock.Ack(*evt.Request)
				c.Bus.PublishInbound(&bus.InboundMessage{
					Channel:  c.Name(),
					SenderID: cmd.UserID,
					ChatID:   cmd.ChannelID,
					Command:  strings.TrimPrefix(cmd.Command, "/"),
					Content:  cmd.Text,
				})
			}
		}
	}
}

func (c *SlackChannel) handleMessage(ev *slackevents.MessageEvent) {
	// Skip bot echoes and message edits.
	if ev.BotID != "" || ev.SubType != "" || strings.TrimSpace(ev.Text) == "" {
		return
	}
	c.Bus.PublishInbound(&bus.InboundMessage{
		Channel:  c.Name(),
		SenderID: ev.User,
		ChatID:   ev.Channel,
		Content:  ev.Text,
	})
}

func (c *SlackChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	text := keyboardText(msg.Content, msg.Keyboard)
	_, _, err := c.api.PostMessageContext(ctx, msg.ChatID, slack.MsgOptionText(text, false))
	return err
}
