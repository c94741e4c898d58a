package router

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kioskbot/kiosk/internal/admin"
	"github.com/kioskbot/kiosk/internal/audit"
	"github.com/kioskbot/kiosk/internal/bus"
	"github.com/kioskbot/kiosk/internal/events"
	"github.com/kioskbot/kiosk/internal/session"
	"github.com/kioskbot/kiosk/internal/store"
)

const testConfig = `{
  "bot_token": "123456:test-token",
  "welcome_message": "Welcome!",
  "admin_ids": [100, 200],
  "menus": {
    "main": {"title": "Main Menu", "buttons": [["Products", "Help"]]},
    "products": {"title": "Products", "buttons": [["Pricing"], ["🔙 Back"]]}
  },
  "button_mapping": {"Products": "products", "🔙 Back": "back"},
  "responses": {"Help": "Contact support@example.com", "Pricing": "See the price list."}
}`

type harness struct {
	router *Router
	store  *store.Store
	bus    *bus.MessageBus
	out    chan *bus.OutboundMessage
	cancel context.CancelFunc
}

func newHarness(t *testing.T, publisher events.Publisher) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "menu.json")
	if err := os.WriteFile(path, []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	b := bus.NewMessageBus()
	r := New(b, s, session.NewManager(), nil, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out := make(chan *bus.OutboundMessage, 20)
	b.Subscribe("test", func(m *bus.OutboundMessage) { out <- m })
	go b.DispatchOutbound(ctx)
	go r.Run(ctx)

	return &harness{router: r, store: s, bus: b, out: out, cancel: cancel}
}

func (h *harness) press(t *testing.T, sender, content string) {
	t.Helper()
	h.bus.PublishInbound(&bus.InboundMessage{
		Channel: "test", SenderID: sender, ChatID: "chat-" + sender, Content: content,
	})
}

func (h *harness) command(t *testing.T, sender, cmd string) {
	t.Helper()
	h.bus.PublishInbound(&bus.InboundMessage{
		Channel: "test", SenderID: sender, ChatID: "chat-" + sender, Command: cmd,
	})
}

func (h *harness) next(t *testing.T) *bus.OutboundMessage {
	t.Helper()
	select {
	case m := <-h.out:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound message")
		return nil
	}
}

func TestStartCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.command(t, "555", "start")
	welcome := h.next(t)
	if !strings.Contains(welcome.Content, "Welcome!") || !strings.Contains(welcome.Content, "555") {
		t.Errorf("welcome = %q", welcome.Content)
	}
	root := h.next(t)
	if root.Content != "Main Menu" || len(root.Keyboard) == 0 {
		t.Errorf("root render = %+v", root)
	}
}

func TestNavigationAndBack(t *testing.T) {
	h := newHarness(t, nil)

	h.press(t, "555", "Products")
	if m := h.next(t); m.Content != "Products" {
		t.Errorf("sub-menu render = %q", m.Content)
	}
	h.press(t, "555", "Pricing")
	if m := h.next(t); m.Content != "See the price list." {
		t.Errorf("reply = %q", m.Content)
	}
	h.press(t, "555", "🔙 Back")
	if m := h.next(t); m.Content != "Main Menu" {
		t.Errorf("after back = %q", m.Content)
	}
}

func TestFallback(t *testing.T) {
	h := newHarness(t, nil)

	h.press(t, "555", "garbage")
	if m := h.next(t); !strings.Contains(m.Content, `"garbage"`) {
		t.Errorf("fallback = %q", m.Content)
	}
}

func TestSettingsDeniedForNonAdmin(t *testing.T) {
	h := newHarness(t, nil)

	h.press(t, "555", store.SettingsLabel)
	m := h.next(t)
	if !strings.Contains(m.Content, "555") || len(m.Keyboard) != 0 {
		t.Errorf("denial = %+v", m)
	}

	h.press(t, "100", store.SettingsLabel)
	m = h.next(t)
	if !strings.Contains(m.Content, "Settings") || len(m.Keyboard) == 0 {
		t.Errorf("settings render = %+v", m)
	}
}

func TestAdminEditRoundTrip(t *testing.T) {
	h := newHarness(t, nil)

	h.press(t, "100", store.SettingsLabel)
	h.next(t)
	h.press(t, "100", admin.BtnEditWelcome)
	if m := h.next(t); !strings.Contains(m.Content, "Welcome!") {
		t.Errorf("prompt = %q", m.Content)
	}
	h.press(t, "100", "Fresh greeting")
	if m := h.next(t); !strings.Contains(m.Content, "updated") {
		t.Errorf("commit = %q", m.Content)
	}
	if got := h.store.Welcome(); got != "Fresh greeting" {
		t.Errorf("welcome = %q", got)
	}
}

func TestReloadCancelsInFlightWorkflow(t *testing.T) {
	h := newHarness(t, nil)

	// Admin 100 starts editing the welcome message.
	h.press(t, "100", store.SettingsLabel)
	h.next(t)
	h.press(t, "100", admin.BtnEditWelcome)
	h.next(t)

	// Admin 200 reloads the configuration meanwhile.
	h.press(t, "200", admin.BtnReload)
	if m := h.next(t); !strings.Contains(m.Content, "reloaded") {
		t.Fatalf("reload reply = %q", m.Content)
	}

	// 100's next input lands on a stale generation: the workflow is
	// cancelled and nothing is committed.
	h.press(t, "100", "never saved")
	if m := h.next(t); !strings.Contains(m.Content, "cancelled") {
		t.Errorf("stale reply = %q", m.Content)
	}
	h.next(t) // root render after the cancellation notice
	if got := h.store.Welcome(); got != "Welcome!" {
		t.Errorf("welcome = %q, reload must cancel the edit", got)
	}
}

func TestCancelCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.press(t, "100", store.SettingsLabel)
	h.next(t)
	h.press(t, "100", admin.BtnEditWelcome)
	h.next(t)
	h.command(t, "100", "cancel")
	if m := h.next(t); !strings.Contains(m.Content, "Cancelled") {
		t.Errorf("cancel reply = %q", m.Content)
	}
	if got := h.store.Welcome(); got != "Welcome!" {
		t.Errorf("welcome = %q, cancel must not mutate", got)
	}
}

func TestEventsPublished(t *testing.T) {
	pub := events.NewChannelPublisher(10)
	h := newHarness(t, pub)

	h.press(t, "555", "Products")
	h.next(t)

	select {
	case ev := <-pub.Events:
		if ev.EventType != audit.EventNavigate || ev.Label != "Products" {
			t.Errorf("event = %+v", ev)
		}
		if ev.TraceID == "" {
			t.Error("event should carry a trace ID")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}
