// Package menu turns resolved button actions into rendered menu screens.
package menu

import (
	"errors"
	"fmt"

	"github.com/kioskbot/kiosk/internal/session"
	"github.com/kioskbot/kiosk/internal/store"
)

// Render is one outbound screen: text plus an optional keyboard grid.
// A nil Keyboard leaves the user's current keyboard in place.
type Render struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
}

// Navigator renders menus and applies navigation actions to sessions.
type Navigator struct {
	store *store.Store
}

// NewNavigator creates a navigator over the given store.
func NewNavigator(s *store.Store) *Navigator {
	return &Navigator{store: s}
}

// MenuRender renders a menu screen. Admins see an extra settings row on the
// root menu. A menu that disappeared under the user falls back to the root.
func (n *Navigator) MenuRender(name string, isAdmin bool) Render {
	m, err := n.store.Menu(name)
	if errors.Is(err, store.ErrMenuNotFound) && name != store.RootMenu {
		name = store.RootMenu
		m, err = n.store.Menu(name)
	}
	if err != nil {
		return Render{Text: "Menu unavailable.", RemoveKeyboard: true}
	}

	keyboard := make([][]string, 0, len(m.Buttons)+1)
	for _, row := range m.Buttons {
		keyboard = append(keyboard, append([]string(nil), row...))
	}
	if isAdmin && name == store.RootMenu {
		keyboard = append(keyboard, []string{store.SettingsLabel})
	}
	return Render{Text: m.Title, Keyboard: keyboard}
}

// Apply executes a resolved action against the session and returns the
// screen to send. Replies and unrecognized presses leave history untouched.
func (n *Navigator) Apply(sess *session.Session, action store.Action, label string, isAdmin bool) Render {
	switch action.Kind {
	case store.ActionNavigate:
		if _, err := n.store.Menu(action.Menu); err != nil {
			sess.ToRoot()
			return n.MenuRender(store.RootMenu, isAdmin)
		}
		sess.Enter(action.Menu)
		return n.MenuRender(action.Menu, isAdmin)
	case store.ActionBack:
		return n.MenuRender(sess.Back(), isAdmin)
	case store.ActionRoot:
		sess.ToRoot()
		return n.MenuRender(store.RootMenu, isAdmin)
	case store.ActionRespond:
		return Render{Text: action.Reply}
	default:
		return Render{Text: fmt.Sprintf("I don't understand %q. Use the buttons below.", label)}
	}
}

// Start resets the session and returns the welcome screens. The caller's own
// ID is included so a first operator can add themselves to the admin roster.
func (n *Navigator) Start(sess *session.Session, senderID string, isAdmin bool) []Render {
	sess.ClearFlow()
	sess.ToRoot()
	welcome := fmt.Sprintf("%s\n\nYour user ID: %s", n.store.Welcome(), senderID)
	return []Render{
		{Text: welcome},
		n.MenuRender(store.RootMenu, isAdmin),
	}
}

// Root resets the session to the root menu and renders it.
func (n *Navigator) Root(sess *session.Session, isAdmin bool) Render {
	sess.ToRoot()
	return n.MenuRender(store.RootMenu, isAdmin)
}

// Help returns the static help screen.
func (n *Navigator) Help() Render {
	return Render{Text: "Use the buttons to navigate the menus.\n\n" +
		"/start - restart and show the main menu\n" +
		"/menu - jump back to the main menu\n" +
		"/help - show this message\n" +
		"/cancel - abort an in-progress operation"}
}
