package channels

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/skip2/go-qrcode"

	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/kioskbot/kiosk/internal/bus"
	"github.com/kioskbot/kiosk/internal/config"
)

// WhatsAppChannel is a native WhatsApp client. Menus render as text since
// WhatsApp has no reply keyboards; users answer by typing the button label.
type WhatsAppChannel struct {
	BaseChannel
	config    config.WhatsAppConfig
	dataDir   string
	client    *whatsmeow.Client
	container *sqlstore.Container
}

// NewWhatsAppChannel creates a WhatsApp channel storing its device session
// under dataDir.
func NewWhatsAppChannel(cfg config.WhatsAppConfig, dataDir string, messageBus *bus.MessageBus) *WhatsAppChannel {
	return &WhatsAppChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		dataDir:     dataDir,
	}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

func (c *WhatsAppChannel) Start(ctx context.Context) error {
	dbLog := waLog.Stdout("Database", "WARN", true)
	clientLog := waLog.Stdout("Client", "INFO", true)

	dbPath := filepath.Join(c.dataDir, "whatsapp.db")
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbLog)
	if err != nil {
		return fmt.Errorf("failed to init whatsapp db: %w", err)
	}
	c.container = container

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	c.client = whatsmeow.NewClient(deviceStore, clientLog)
	c.client.AddEventHandler(c.eventHandler)

	if c.client.Store.ID == nil {
		// No session yet, pair via QR code.
		qrChan, _ := c.client.GetQRChannel(context.Background())
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		go c.handlePairing(qrChan)
	} else {
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		slog.Info("whatsapp channel connected")
	}

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		if err := c.Send(ctx, msg); err != nil {
			slog.Error("whatsapp send failed", "chat_id", msg.ChatID, "error", err)
		}
	})
	return nil
}

func (c *WhatsAppChannel) handlePairing(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			qrPath := filepath.Join(c.dataDir, "whatsapp-qr.png")
			if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 512, qrPath); err != nil {
				slog.Error("failed to write pairing QR", "error", err)
				continue
			}
			slog.Info("whatsapp pairing QR written, scan it with your phone", "path", qrPath)
		} else {
			slog.Info("whatsapp pairing event", "event", evt.Event)
		}
	}
}

func (c *WhatsAppChannel) Stop() error {
	if c.client != nil {
		c.client.Disconnect()
	}
	if c.container != nil {
		c.container.Close()
	}
	return nil
}

func (c *WhatsAppChannel) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		if v.Info.IsFromMe {
			return
		}
		content := v.Message.GetConversation()
		if content == "" {
			content = v.Message.GetExtendedTextMessage().GetText()
		}
		if content == "" {
			return
		}
		inbound := &bus.InboundMessage{
			Channel:    c.Name(),
			SenderID:   v.Info.Sender.User,
			SenderName: v.Info.PushName,
			ChatID:     v.Info.Chat.String(),
			Content:    content,
			Timestamp:  v.Info.Timestamp,
		}
		// WhatsApp has no native commands; accept the slash convention.
		if strings.HasPrefix(content, "/") {
			parts := strings.SplitN(strings.TrimPrefix(content, "/"), " ", 2)
			inbound.Command = parts[0]
			inbound.Content = ""
			if len(parts) == 2 {
				inbound.Content = parts[1]
			}
		}
		c.Bus.PublishInbound(inbound)
	}
}

func (c *WhatsAppChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid, err := types.ParseJID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid JID: %w", err)
	}

	waMsg := &waE2E.Message{
		Conversation: proto.String(keyboardText(msg.Content, msg.Keyboard)),
	}
	_, err = c.client.SendMessage(ctx, jid, waMsg)
	return err
}
