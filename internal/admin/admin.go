// Package admin implements the settings menu and the guided multi-step
// conversations admins use to edit the live configuration.
package admin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kioskbot/kiosk/internal/menu"
	"github.com/kioskbot/kiosk/internal/session"
	"github.com/kioskbot/kiosk/internal/store"
)

// Settings menu button labels.
const (
	BtnEditWelcome    = "📝 Edit Welcome Message"
	BtnEditResponse   = "💬 Edit Response"
	BtnEditMenu       = "🔧 Edit Menu"
	BtnAddMenu        = "➕ Add Menu"
	BtnDeleteMenu     = "🗑️ Delete Menu"
	BtnManageAdmins   = "👥 Manage Admins"
	BtnAddAdmin       = "➕ Add Admin"
	BtnRemoveAdmin    = "➖ Remove Admin"
	BtnReload         = "🔄 Reload Config"
	BtnBackToMain     = "🔙 Main Menu"
	BtnBackToSettings = "🔙 Back to Settings"
)

// Workflow task names stored in session.FlowState.
const (
	taskEditWelcome  = "edit_welcome"
	taskEditResponse = "edit_response"
	taskEditMenu     = "edit_menu"
	taskAddMenu      = "add_menu"
	taskDeleteMenu   = "delete_menu"
	taskAddAdmin     = "add_admin"
	taskRemoveAdmin  = "remove_admin"
)

// Workflow drives admin conversations against the store.
type Workflow struct {
	store *store.Store
	nav   *menu.Navigator
}

// New creates an admin workflow handler.
func New(s *store.Store, nav *menu.Navigator) *Workflow {
	return &Workflow{store: s, nav: nav}
}

func denied(senderID string) menu.Render {
	return menu.Render{Text: fmt.Sprintf("🚫 Access denied. Your user ID: %s", senderID)}
}

func (w *Workflow) settingsRender() menu.Render {
	return menu.Render{
		Text: "⚙️ Settings",
		Keyboard: [][]string{
			{BtnEditWelcome, BtnEditResponse},
			{BtnEditMenu, BtnAddMenu},
			{BtnDeleteMenu, BtnManageAdmins},
			{BtnReload},
			{BtnBackToMain},
		},
	}
}

func (w *Workflow) adminsRender() menu.Render {
	ids := w.store.AdminIDs()
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = fmt.Sprintf("• %d", id)
	}
	return menu.Render{
		Text: "👥 Current admins:\n" + strings.Join(lines, "\n"),
		Keyboard: [][]string{
			{BtnAddAdmin, BtnRemoveAdmin},
			{BtnBackToSettings},
		},
	}
}

// Open renders the settings menu, refusing non-admins with their own ID so
// they can ask an existing admin to register them.
func (w *Workflow) Open(sess *session.Session, senderID string) menu.Render {
	if !w.store.IsAdmin(senderID) {
		return denied(senderID)
	}
	sess.ClearFlow()
	return w.settingsRender()
}

// Cancel aborts any in-progress workflow without touching the configuration.
func (w *Workflow) Cancel(sess *session.Session, senderID string) menu.Render {
	if sess.Flow == nil {
		return menu.Render{Text: "Nothing to cancel."}
	}
	sess.ClearFlow()
	if w.store.IsAdmin(senderID) {
		r := w.settingsRender()
		r.Text = "Cancelled.\n\n" + r.Text
		return r
	}
	return menu.Render{Text: "Cancelled."}
}

func (w *Workflow) startFlow(sess *session.Session, task string) {
	sess.Flow = &session.FlowState{Task: task}
	sess.Generation = w.store.Generation()
}

// HandleButton handles a settings-menu button press. The second return is
// false when label is not an admin button at all.
func (w *Workflow) HandleButton(sess *session.Session, senderID, label string) (menu.Render, bool) {
	switch label {
	case BtnEditWelcome, BtnEditResponse, BtnEditMenu, BtnAddMenu, BtnDeleteMenu,
		BtnManageAdmins, BtnAddAdmin, BtnRemoveAdmin, BtnReload, BtnBackToMain, BtnBackToSettings:
	default:
		return menu.Render{}, false
	}
	if !w.store.IsAdmin(senderID) {
		return denied(senderID), true
	}

	switch label {
	case BtnEditWelcome:
		w.startFlow(sess, taskEditWelcome)
		return menu.Render{Text: fmt.Sprintf("Send the new welcome message.\n\nCurrent:\n%s", w.store.Welcome())}, true

	case BtnEditResponse:
		w.startFlow(sess, taskEditResponse)
		labels := w.store.ResponseLabels()
		text := "Send the button label whose response you want to set."
		if len(labels) > 0 {
			text += "\n\nExisting responses:\n• " + strings.Join(labels, "\n• ")
		}
		return menu.Render{Text: text}, true

	case BtnEditMenu:
		w.startFlow(sess, taskEditMenu)
		return menu.Render{Text: "Which menu do you want to edit?\n\n• " + strings.Join(w.store.MenuNames(), "\n• ")}, true

	case BtnAddMenu:
		w.startFlow(sess, taskAddMenu)
		return menu.Render{Text: "Send a short internal name for the new menu (for example: support)."}, true

	case BtnDeleteMenu:
		w.startFlow(sess, taskDeleteMenu)
		return menu.Render{Text: "Type the name of the menu to delete.\n\n• " + strings.Join(w.store.MenuNames(), "\n• ")}, true

	case BtnManageAdmins:
		return w.adminsRender(), true

	case BtnAddAdmin:
		w.startFlow(sess, taskAddAdmin)
		return menu.Render{Text: "Send the numeric user ID to add as admin."}, true

	case BtnRemoveAdmin:
		if len(w.store.AdminIDs()) <= 1 {
			return menu.Render{Text: "Cannot remove: only one admin remains."}, true
		}
		w.startFlow(sess, taskRemoveAdmin)
		return w.removeAdminPrompt(), true

	case BtnReload:
		sess.ClearFlow()
		if err := w.store.Reload(); err != nil {
			return menu.Render{Text: "Reload failed: " + err.Error()}, true
		}
		sess.Generation = w.store.Generation()
		r := w.settingsRender()
		r.Text = "✅ Configuration reloaded.\n\n" + r.Text
		return r, true

	case BtnBackToMain:
		return w.nav.Root(sess, true), true

	case BtnBackToSettings:
		return w.settingsRender(), true
	}
	return menu.Render{}, false
}

func (w *Workflow) removeAdminPrompt() menu.Render {
	ids := w.store.AdminIDs()
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = fmt.Sprintf("• %d", id)
	}
	return menu.Render{Text: "Send the numeric user ID to remove:\n" + strings.Join(lines, "\n")}
}

// HandleInput advances the active workflow with free text. Validation
// failures re-prompt and leave the workflow state unchanged.
func (w *Workflow) HandleInput(sess *session.Session, senderID, text string) menu.Render {
	flow := sess.Flow
	if flow == nil {
		return menu.Render{Text: "No operation in progress."}
	}
	if !w.store.IsAdmin(senderID) {
		sess.ClearFlow()
		return denied(senderID)
	}

	text = strings.TrimSpace(text)

	switch flow.Task {
	case taskEditWelcome:
		return w.stepEditWelcome(sess, text)
	case taskEditResponse:
		return w.stepEditResponse(sess, flow, text)
	case taskEditMenu:
		return w.stepEditMenu(sess, flow, text)
	case taskAddMenu:
		return w.stepAddMenu(sess, flow, text)
	case taskDeleteMenu:
		return w.stepDeleteMenu(sess, text)
	case taskAddAdmin:
		return w.stepAddAdmin(sess, text)
	case taskRemoveAdmin:
		return w.stepRemoveAdmin(sess, senderID, text)
	}

	sess.ClearFlow()
	return menu.Render{Text: "Unknown operation, cancelled."}
}

func (w *Workflow) finish(sess *session.Session, text string) menu.Render {
	sess.ClearFlow()
	r := w.settingsRender()
	r.Text = text + "\n\n" + r.Text
	return r
}

func (w *Workflow) saveFailed(sess *session.Session, err error) menu.Render {
	sess.ClearFlow()
	return menu.Render{Text: "❌ Failed to save configuration: " + err.Error()}
}

func (w *Workflow) stepEditWelcome(sess *session.Session, text string) menu.Render {
	if text == "" {
		return menu.Render{Text: "The welcome message cannot be empty. Send the new text."}
	}
	if err := w.store.SetWelcome(text); err != nil {
		return w.saveFailed(sess, err)
	}
	return w.finish(sess, "✅ Welcome message updated.")
}

func (w *Workflow) stepEditResponse(sess *session.Session, flow *session.FlowState, text string) menu.Render {
	switch flow.Step {
	case 0:
		if text == "" {
			return menu.Render{Text: "Send the button label."}
		}
		flow.Set("label", text)
		flow.Step = 1
		if current, ok := w.store.Response(text); ok {
			return menu.Render{Text: fmt.Sprintf("Send the new response for %q.\n\nCurrent:\n%s", text, current)}
		}
		return menu.Render{Text: fmt.Sprintf("Send the response text for %q.", text)}
	default:
		if text == "" {
			return menu.Render{Text: "The response cannot be empty. Send the text."}
		}
		label := flow.Get("label")
		if err := w.store.SetResponse(label, text); err != nil {
			return w.saveFailed(sess, err)
		}
		return w.finish(sess, fmt.Sprintf("✅ Response for %q updated.", label))
	}
}

const (
	editMenuChooseAction = 1
	editMenuNewTitle     = 2
	editMenuOldButton    = 3
	editMenuNewButton    = 4
)

func (w *Workflow) stepEditMenu(sess *session.Session, flow *session.FlowState, text string) menu.Render {
	switch flow.Step {
	case 0:
		if _, err := w.store.Menu(text); err != nil {
			return menu.Render{Text: fmt.Sprintf("No menu named %q. Pick one of:\n• %s",
				text, strings.Join(w.store.MenuNames(), "\n• "))}
		}
		flow.Set("menu", text)
		flow.Step = editMenuChooseAction
		return menu.Render{Text: fmt.Sprintf("Editing %q. Reply with:\n"+
			"• title - change the menu title\n"+
			"• button - rename a button\n"+
			"• view - list the buttons", text)}

	case editMenuChooseAction:
		switch strings.ToLower(text) {
		case "title":
			flow.Step = editMenuNewTitle
			return menu.Render{Text: "Send the new title."}
		case "button":
			flow.Step = editMenuOldButton
			return menu.Render{Text: "Send the current text of the button to rename."}
		case "view":
			m, err := w.store.Menu(flow.Get("menu"))
			if err != nil {
				return w.saveFailed(sess, err)
			}
			var rows []string
			for _, row := range m.Buttons {
				rows = append(rows, strings.Join(row, " | "))
			}
			return menu.Render{Text: fmt.Sprintf("Buttons of %q:\n%s\n\nReply 'title', 'button', or 'view'.",
				flow.Get("menu"), strings.Join(rows, "\n"))}
		default:
			return menu.Render{Text: "Reply with 'title', 'button', or 'view'."}
		}

	case editMenuNewTitle:
		if text == "" {
			return menu.Render{Text: "The title cannot be empty. Send the new title."}
		}
		name := flow.Get("menu")
		if err := w.store.SetMenuTitle(name, text); err != nil {
			return w.saveFailed(sess, err)
		}
		return w.finish(sess, fmt.Sprintf("✅ Title of %q updated.", name))

	case editMenuOldButton:
		m, err := w.store.Menu(flow.Get("menu"))
		if err != nil {
			return w.saveFailed(sess, err)
		}
		if !m.HasButton(text) {
			return menu.Render{Text: fmt.Sprintf("No button %q in that menu. Send the exact button text.", text)}
		}
		flow.Set("old", text)
		flow.Step = editMenuNewButton
		return menu.Render{Text: fmt.Sprintf("Send the new text for %q.", text)}

	default: // editMenuNewButton
		if text == "" {
			return menu.Render{Text: "The button text cannot be empty."}
		}
		name, old := flow.Get("menu"), flow.Get("old")
		err := w.store.RenameButton(name, old, text)
		switch {
		case errors.Is(err, store.ErrButtonExists):
			return menu.Render{Text: fmt.Sprintf("%q already exists in that menu. Pick another text.", text)}
		case err != nil:
			return w.saveFailed(sess, err)
		}
		return w.finish(sess, fmt.Sprintf("✅ Button %q renamed to %q.", old, text))
	}
}

const (
	addMenuTitle     = 1
	addMenuWireAsk   = 2
	addMenuWireLabel = 3
)

func (w *Workflow) stepAddMenu(sess *session.Session, flow *session.FlowState, text string) menu.Render {
	switch flow.Step {
	case 0:
		name := strings.ToLower(text)
		if name == "" || strings.ContainsAny(name, " \t") {
			return menu.Render{Text: "Menu names are single words. Send a short name like 'support'."}
		}
		if name == store.RootMenu || name == store.TargetBack || name == store.TargetAdmin {
			return menu.Render{Text: fmt.Sprintf("%q is reserved. Pick another name.", name)}
		}
		if _, err := w.store.Menu(name); err == nil {
			return menu.Render{Text: fmt.Sprintf("A menu named %q already exists. Pick another name.", name)}
		}
		flow.Set("name", name)
		flow.Step = addMenuTitle
		return menu.Render{Text: fmt.Sprintf("Send the title shown when %q opens.", name)}

	case addMenuTitle:
		if text == "" {
			return menu.Render{Text: "The title cannot be empty. Send the title."}
		}
		name := flow.Get("name")
		if err := w.store.AddMenu(name, text); err != nil {
			return w.saveFailed(sess, err)
		}
		flow.Step = addMenuWireAsk
		return menu.Render{Text: fmt.Sprintf("Menu %q created. Add a button for it to the main menu? (yes/no)", name)}

	case addMenuWireAsk:
		switch strings.ToLower(text) {
		case "yes", "y":
			flow.Step = addMenuWireLabel
			return menu.Render{Text: "Send the button text to show on the main menu."}
		case "no", "n":
			return w.finish(sess, "✅ Menu added. Map a button to it later to make it reachable.")
		default:
			return menu.Render{Text: "Reply 'yes' or 'no'."}
		}

	default: // addMenuWireLabel
		if text == "" {
			return menu.Render{Text: "The button text cannot be empty."}
		}
		name := flow.Get("name")
		err := w.store.AddButton(store.RootMenu, text)
		switch {
		case errors.Is(err, store.ErrButtonExists):
			return menu.Render{Text: fmt.Sprintf("%q is already on the main menu. Pick another text.", text)}
		case err != nil:
			return w.saveFailed(sess, err)
		}
		if err := w.store.MapButton(text, name); err != nil {
			return w.saveFailed(sess, err)
		}
		return w.finish(sess, fmt.Sprintf("✅ Menu %q added and wired to button %q.", name, text))
	}
}

func (w *Workflow) stepDeleteMenu(sess *session.Session, text string) menu.Render {
	err := w.store.DeleteMenu(text)
	switch {
	case errors.Is(err, store.ErrMenuProtected):
		return menu.Render{Text: fmt.Sprintf("%q cannot be deleted.", text)}
	case errors.Is(err, store.ErrMenuNotFound):
		return menu.Render{Text: fmt.Sprintf("No menu named %q. Type the exact name.", text)}
	case err != nil:
		return w.saveFailed(sess, err)
	}
	return w.finish(sess, fmt.Sprintf("✅ Menu %q deleted and its buttons unmapped.", text))
}

func (w *Workflow) stepAddAdmin(sess *session.Session, text string) menu.Render {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return menu.Render{Text: "That is not a numeric user ID. Send digits only."}
	}
	err = w.store.AddAdmin(id)
	switch {
	case errors.Is(err, store.ErrAlreadyAdmin):
		return w.finish(sess, fmt.Sprintf("%d is already an admin.", id))
	case err != nil:
		return w.saveFailed(sess, err)
	}
	return w.finish(sess, fmt.Sprintf("✅ %d added as admin.", id))
}

func (w *Workflow) stepRemoveAdmin(sess *session.Session, senderID, text string) menu.Render {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return menu.Render{Text: "That is not a numeric user ID. Send digits only."}
	}
	if text == senderID {
		return w.finish(sess, "You cannot remove yourself.")
	}
	err = w.store.RemoveAdmin(id)
	switch {
	case errors.Is(err, store.ErrNotAnAdmin):
		return w.finish(sess, fmt.Sprintf("%d is not an admin.", id))
	case errors.Is(err, store.ErrLastAdmin):
		return w.finish(sess, "Cannot remove the last admin.")
	case err != nil:
		return w.saveFailed(sess, err)
	}
	return w.finish(sess, fmt.Sprintf("✅ %d removed from admins.", id))
}
