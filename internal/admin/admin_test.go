package admin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kioskbot/kiosk/internal/menu"
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

func newWorkflow(t *testing.T) (*Workflow, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menu.json")
	if err := os.WriteFile(path, []byte(testConfig), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return New(s, menu.NewNavigator(s)), s
}

func TestOpenDeniesNonAdmins(t *testing.T) {
	w, _ := newWorkflow(t)
	sess := &session.Session{}

	r := w.Open(sess, "555")
	if !strings.Contains(r.Text, "555") {
		t.Errorf("denial should include the caller's ID, got %q", r.Text)
	}
	if r.Keyboard != nil {
		t.Error("denied render must not expose the settings keyboard")
	}

	r = w.Open(sess, "100")
	if !strings.Contains(r.Text, "Settings") || len(r.Keyboard) == 0 {
		t.Errorf("admin should see settings, got %+v", r)
	}
}

func TestUnknownLabelNotClaimed(t *testing.T) {
	w, _ := newWorkflow(t)
	sess := &session.Session{}

	if _, handled := w.HandleButton(sess, "100", "Products"); handled {
		t.Error("regular buttons must not be claimed by the admin handler")
	}
	if _, handled := w.HandleButton(sess, "100", BtnReload); !handled {
		t.Error("admin buttons must be claimed")
	}
}

func TestEditWelcomeFlow(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	r, handled := w.HandleButton(sess, "100", BtnEditWelcome)
	if !handled || sess.Flow == nil {
		t.Fatalf("flow not started: %+v", r)
	}
	if !strings.Contains(r.Text, "Welcome!") {
		t.Errorf("prompt should show the current welcome, got %q", r.Text)
	}

	r = w.HandleInput(sess, "100", "New greeting")
	if sess.Flow != nil {
		t.Error("flow should be finished")
	}
	if !strings.Contains(r.Text, "updated") {
		t.Errorf("commit reply = %q", r.Text)
	}
	if got := s.Welcome(); got != "New greeting" {
		t.Errorf("welcome = %q", got)
	}
}

func TestEditResponseFlow(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnEditResponse)
	w.HandleInput(sess, "100", "Help")
	r := w.HandleInput(sess, "100", "Mail us at help@example.com")
	if sess.Flow != nil {
		t.Error("flow should be finished")
	}
	if !strings.Contains(r.Text, "Help") {
		t.Errorf("commit reply = %q", r.Text)
	}

	action := s.Resolve("Help")
	if action.Kind != store.ActionRespond || action.Reply != "Mail us at help@example.com" {
		t.Errorf("edited response does not round-trip through Resolve: %+v", action)
	}
}

func TestAddAdminFlowReprompts(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnAddAdmin)
	r := w.HandleInput(sess, "100", "not-a-number")
	if sess.Flow == nil {
		t.Fatal("validation failure must keep the flow alive")
	}
	if !strings.Contains(r.Text, "numeric") {
		t.Errorf("re-prompt = %q", r.Text)
	}

	w.HandleInput(sess, "100", "300")
	if !s.IsAdmin("300") {
		t.Error("300 should be an admin now")
	}
	if sess.Flow != nil {
		t.Error("flow should be finished")
	}
}

func TestRemoveAdminRefusesSelf(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnRemoveAdmin)
	r := w.HandleInput(sess, "100", "100")
	if !strings.Contains(r.Text, "yourself") {
		t.Errorf("self-removal reply = %q", r.Text)
	}
	if !s.IsAdmin("100") {
		t.Error("self-removal must not happen")
	}
}

func TestRemoveAdminPrecheck(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	if err := s.RemoveAdmin(200); err != nil {
		t.Fatal(err)
	}

	r, _ := w.HandleButton(sess, "100", BtnRemoveAdmin)
	if sess.Flow != nil {
		t.Error("flow must not start with a single admin left")
	}
	if !strings.Contains(r.Text, "only one admin") {
		t.Errorf("precheck reply = %q", r.Text)
	}
}

func TestEditMenuRenameButton(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnEditMenu)
	r := w.HandleInput(sess, "100", "nope")
	if !strings.Contains(r.Text, "No menu") || sess.Flow.Step != 0 {
		t.Fatalf("bad menu name should re-prompt, got %q step %d", r.Text, sess.Flow.Step)
	}

	w.HandleInput(sess, "100", "main")
	w.HandleInput(sess, "100", "button")
	r = w.HandleInput(sess, "100", "Missing")
	if !strings.Contains(r.Text, "No button") {
		t.Fatalf("unknown button should re-prompt, got %q", r.Text)
	}

	w.HandleInput(sess, "100", "Products")
	w.HandleInput(sess, "100", "Catalog")
	if sess.Flow != nil {
		t.Error("flow should be finished")
	}

	m, _ := s.Menu("main")
	if !m.HasButton("Catalog") || m.HasButton("Products") {
		t.Errorf("buttons after rename: %v", m.Buttons)
	}
	if got := s.Resolve("Catalog"); got.Kind != store.ActionNavigate || got.Menu != "products" {
		t.Errorf("mapping not carried over: %+v", got)
	}
}

func TestAddMenuFlow(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnAddMenu)
	r := w.HandleInput(sess, "100", "two words")
	if !strings.Contains(r.Text, "single words") {
		t.Fatalf("name validation re-prompt = %q", r.Text)
	}
	r = w.HandleInput(sess, "100", "main")
	if !strings.Contains(r.Text, "reserved") {
		t.Fatalf("reserved-name re-prompt = %q", r.Text)
	}

	w.HandleInput(sess, "100", "support")
	w.HandleInput(sess, "100", "Support Desk")
	w.HandleInput(sess, "100", "yes")
	w.HandleInput(sess, "100", "🆘 Support")
	if sess.Flow != nil {
		t.Error("flow should be finished")
	}

	if got := s.Resolve("🆘 Support"); got.Kind != store.ActionNavigate || got.Menu != "support" {
		t.Errorf("new menu not wired: %+v", got)
	}
	m, _ := s.Menu("main")
	if !m.HasButton("🆘 Support") {
		t.Error("button missing from main menu")
	}
}

func TestDeleteMenuFlow(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnDeleteMenu)
	r := w.HandleInput(sess, "100", "main")
	if !strings.Contains(r.Text, "cannot be deleted") || sess.Flow == nil {
		t.Fatalf("protected menu should re-prompt, got %q", r.Text)
	}

	w.HandleInput(sess, "100", "products")
	if sess.Flow != nil {
		t.Error("flow should be finished")
	}
	if _, err := s.Menu("products"); err == nil {
		t.Error("menu still exists")
	}
	if got := s.Resolve("Products"); got.Kind != store.ActionNone {
		t.Errorf("mapping not pruned: %+v", got)
	}
}

func TestCancel(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	w.HandleButton(sess, "100", BtnEditWelcome)
	r := w.Cancel(sess, "100")
	if sess.Flow != nil {
		t.Error("Cancel must clear the flow")
	}
	if !strings.Contains(r.Text, "Cancelled") {
		t.Errorf("cancel reply = %q", r.Text)
	}
	if got := s.Welcome(); got != "Welcome!" {
		t.Errorf("cancel must not mutate configuration, welcome = %q", got)
	}
}

func TestReloadButton(t *testing.T) {
	w, s := newWorkflow(t)
	sess := &session.Session{}

	before := s.Generation()
	r, handled := w.HandleButton(sess, "100", BtnReload)
	if !handled || !strings.Contains(r.Text, "reloaded") {
		t.Fatalf("reload reply = %q", r.Text)
	}
	if s.Generation() != before+1 {
		t.Errorf("generation = %d, want %d", s.Generation(), before+1)
	}
	if sess.Generation != s.Generation() {
		t.Error("the reloading admin's session should adopt the new generation")
	}
}
