package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kioskbot/kiosk/internal/bus"
	"github.com/kioskbot/kiosk/internal/config"
)

// TelegramChannel polls the Telegram Bot API for updates and renders menus
// as reply keyboards.
type TelegramChannel struct {
	BaseChannel
	config config.TelegramConfig
	bot    *tgbotapi.BotAPI
	send   func(tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewTelegramChannel creates a Telegram channel. The bot token comes from
// the menu document, not the runtime settings.
func NewTelegramChannel(cfg config.TelegramConfig, token string, messageBus *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = cfg.Debug

	return &TelegramChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		bot:         bot,
		send:        bot.Send,
	}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

// Start subscribes for outbound messages and begins polling for updates.
func (c *TelegramChannel) Start(ctx context.Context) error {
	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("telegram send failed", "chat_id", msg.ChatID, "error", err)
		}
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		slog.Info("telegram channel started", "bot", c.bot.Self.UserName)
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				c.handleUpdate(update)
			}
		}
	}()
	return nil
}

func (c *TelegramChannel) Stop() error {
	c.bot.StopReceivingUpdates()
	return nil
}

func (c *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	inbound := &bus.InboundMessage{
		Channel:    c.Name(),
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: msg.From.UserName,
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		Content:    msg.Text,
	}
	if msg.IsCommand() {
		inbound.Command = msg.Command()
		inbound.Content = msg.CommandArguments()
	}
	c.Bus.PublishInbound(inbound)
}

// Send delivers one outbound message, attaching the keyboard grid as a
// persistent reply keyboard.
func (c *TelegramChannel) Send(_ context.Context, msg *bus.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", msg.ChatID, err)
	}

	out := tgbotapi.NewMessage(chatID, msg.Content)
	switch {
	case len(msg.Keyboard) > 0:
		out.ReplyMarkup = buildReplyKeyboard(msg.Keyboard)
	case msg.RemoveKeyboard:
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}

	if _, err := c.send(out); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func buildReplyKeyboard(grid [][]string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(grid))
	for _, labels := range grid {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	markup.OneTimeKeyboard = false
	return markup
}
