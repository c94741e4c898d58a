package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Sentinel errors returned by store mutators.
var (
	ErrMenuNotFound     = errors.New("menu not found")
	ErrMenuExists       = errors.New("menu already exists")
	ErrMenuProtected    = errors.New("menu is protected")
	ErrButtonNotFound   = errors.New("button not found")
	ErrButtonExists     = errors.New("button already exists")
	ErrResponseNotFound = errors.New("response not found")
	ErrAlreadyAdmin     = errors.New("user is already an admin")
	ErrNotAnAdmin       = errors.New("user is not an admin")
	ErrLastAdmin        = errors.New("cannot remove the last admin")
)

// ActionKind classifies what a button press should do.
type ActionKind int

const (
	// ActionNone means the label is not recognized.
	ActionNone ActionKind = iota
	// ActionNavigate enters the menu named in Action.Menu.
	ActionNavigate
	// ActionBack pops one level of navigation history.
	ActionBack
	// ActionRoot resets navigation to the root menu.
	ActionRoot
	// ActionAdmin opens the admin settings menu.
	ActionAdmin
	// ActionRespond replies with Action.Reply, leaving navigation untouched.
	ActionRespond
)

// Action is the resolution of a button label.
type Action struct {
	Kind  ActionKind
	Menu  string
	Reply string
}

// Store holds the live menu document behind a read-write lock. Mutators
// serialize read-modify-persist sections under the write lock; reads observe
// a consistent snapshot under the read lock.
type Store struct {
	path string

	mu         sync.RWMutex
	doc        *Document
	generation int64
}

// Open loads and validates the document at path.
func Open(path string) (*Store, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, doc: doc, generation: 1}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Generation returns the current document generation. Reload bumps it;
// sessions created against an older generation are stale.
func (s *Store) Generation() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Reload re-reads the document from disk. On failure the current document
// stays in effect. On success the generation advances so the router can
// cancel workflows built against the old document.
func (s *Store) Reload() error {
	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.generation++
	return nil
}

// BotToken returns the configured bot token.
func (s *Store) BotToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.BotToken
}

// Welcome returns the configured welcome message.
func (s *Store) Welcome() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.WelcomeMessage
}

// Menu returns the named menu.
func (s *Store) Menu(name string) (Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.doc.Menus[name]
	if !ok {
		return Menu{}, fmt.Errorf("%w: %s", ErrMenuNotFound, name)
	}
	return m, nil
}

// MenuNames returns all declared menu names, sorted.
func (s *Store) MenuNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.MenuNames()
}

// Response returns the canned response for label.
func (s *Store) Response(label string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.doc.Responses[label]
	return text, ok
}

// ResponseLabels returns all labels with canned responses, sorted.
func (s *Store) ResponseLabels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels := make([]string, 0, len(s.doc.Responses))
	for label := range s.doc.Responses {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// AdminIDs returns a copy of the admin roster.
func (s *Store) AdminIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.doc.AdminIDs...)
}

// IsAdmin reports whether senderID names an admin. Channel sender IDs are
// strings; only numeric IDs can match the roster, so senders on channels
// with non-numeric IDs are never admins.
func (s *Store) IsAdmin(senderID string) bool {
	id, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.doc.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

// Resolve maps a button label to an action. The button mapping wins over
// responses when a label appears in both; the original deployments rely on
// that precedence, so it is kept.
func (s *Store) Resolve(label string) Action {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if target, ok := s.doc.ButtonMapping[label]; ok {
		switch target {
		case TargetBack:
			return Action{Kind: ActionBack}
		case TargetMain:
			return Action{Kind: ActionRoot}
		case TargetAdmin:
			return Action{Kind: ActionAdmin}
		default:
			return Action{Kind: ActionNavigate, Menu: target}
		}
	}
	if label == SettingsLabel {
		return Action{Kind: ActionAdmin}
	}
	if text, ok := s.doc.Responses[label]; ok {
		return Action{Kind: ActionRespond, Reply: text}
	}
	return Action{Kind: ActionNone}
}

// mutate applies fn to a clone of the document and persists the result.
// The live document is swapped in only after the write lands on disk, so a
// persist failure leaves the last successfully persisted state in effect.
func (s *Store) mutate(fn func(d *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := writeDocument(s.path, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// SetWelcome replaces the welcome message.
func (s *Store) SetWelcome(text string) error {
	return s.mutate(func(d *Document) error {
		d.WelcomeMessage = text
		return nil
	})
}

// SetResponse sets or creates the canned response for label.
func (s *Store) SetResponse(label, text string) error {
	return s.mutate(func(d *Document) error {
		if d.Responses == nil {
			d.Responses = map[string]string{}
		}
		d.Responses[label] = text
		return nil
	})
}

// DeleteResponse removes the canned response for label.
func (s *Store) DeleteResponse(label string) error {
	return s.mutate(func(d *Document) error {
		if _, ok := d.Responses[label]; !ok {
			return fmt.Errorf("%w: %s", ErrResponseNotFound, label)
		}
		delete(d.Responses, label)
		return nil
	})
}

// SetMenuTitle replaces the title of the named menu.
func (s *Store) SetMenuTitle(name, title string) error {
	return s.mutate(func(d *Document) error {
		m, ok := d.Menus[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMenuNotFound, name)
		}
		m.Title = title
		d.Menus[name] = m
		return nil
	})
}

// RenameButton changes a button label inside a menu and carries its mapping
// and response entries over to the new label.
func (s *Store) RenameButton(menu, oldLabel, newLabel string) error {
	return s.mutate(func(d *Document) error {
		m, ok := d.Menus[menu]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMenuNotFound, menu)
		}
		if m.HasButton(newLabel) {
			return fmt.Errorf("%w: %s", ErrButtonExists, newLabel)
		}

		found := false
		for i, row := range m.Buttons {
			for j, b := range row {
				if b == oldLabel {
					m.Buttons[i][j] = newLabel
					found = true
				}
			}
		}
		if !found {
			return fmt.Errorf("%w: %s in menu %s", ErrButtonNotFound, oldLabel, menu)
		}
		d.Menus[menu] = m

		if target, ok := d.ButtonMapping[oldLabel]; ok {
			delete(d.ButtonMapping, oldLabel)
			d.ButtonMapping[newLabel] = target
		}
		if text, ok := d.Responses[oldLabel]; ok {
			delete(d.Responses, oldLabel)
			d.Responses[newLabel] = text
		}
		return nil
	})
}

// AddMenu declares a new empty menu.
func (s *Store) AddMenu(name, title string) error {
	return s.mutate(func(d *Document) error {
		switch name {
		case TargetBack, TargetAdmin:
			return fmt.Errorf("%w: %s is reserved", ErrMenuProtected, name)
		}
		if _, ok := d.Menus[name]; ok {
			return fmt.Errorf("%w: %s", ErrMenuExists, name)
		}
		d.Menus[name] = Menu{Title: title, Buttons: [][]string{}}
		return nil
	})
}

// DeleteMenu removes a menu and prunes mapping entries that pointed at it.
// The root and admin menus cannot be deleted.
func (s *Store) DeleteMenu(name string) error {
	return s.mutate(func(d *Document) error {
		switch name {
		case RootMenu, TargetAdmin:
			return fmt.Errorf("%w: %s", ErrMenuProtected, name)
		}
		if _, ok := d.Menus[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMenuNotFound, name)
		}
		delete(d.Menus, name)
		for label, target := range d.ButtonMapping {
			if target == name {
				delete(d.ButtonMapping, label)
			}
		}
		return nil
	})
}

// AddButton appends a new single-button row to a menu.
func (s *Store) AddButton(menu, label string) error {
	return s.mutate(func(d *Document) error {
		m, ok := d.Menus[menu]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMenuNotFound, menu)
		}
		if m.HasButton(label) {
			return fmt.Errorf("%w: %s", ErrButtonExists, label)
		}
		m.Buttons = append(m.Buttons, []string{label})
		d.Menus[menu] = m
		return nil
	})
}

// MapButton wires a button label to a navigation target. The target must be
// a declared menu or one of the reserved back/main/admin targets.
func (s *Store) MapButton(label, target string) error {
	return s.mutate(func(d *Document) error {
		switch target {
		case TargetBack, TargetMain, TargetAdmin:
		default:
			if _, ok := d.Menus[target]; !ok {
				return fmt.Errorf("%w: %s", ErrMenuNotFound, target)
			}
		}
		if d.ButtonMapping == nil {
			d.ButtonMapping = map[string]string{}
		}
		d.ButtonMapping[label] = target
		return nil
	})
}

// AddAdmin adds a user ID to the admin roster.
func (s *Store) AddAdmin(id int64) error {
	return s.mutate(func(d *Document) error {
		for _, admin := range d.AdminIDs {
			if admin == id {
				return fmt.Errorf("%w: %d", ErrAlreadyAdmin, id)
			}
		}
		d.AdminIDs = append(d.AdminIDs, id)
		return nil
	})
}

// RemoveAdmin removes a user ID from the admin roster. The roster can never
// become empty.
func (s *Store) RemoveAdmin(id int64) error {
	return s.mutate(func(d *Document) error {
		idx := -1
		for i, admin := range d.AdminIDs {
			if admin == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrNotAnAdmin, id)
		}
		if len(d.AdminIDs) <= 1 {
			return ErrLastAdmin
		}
		d.AdminIDs = append(d.AdminIDs[:idx], d.AdminIDs[idx+1:]...)
		return nil
	})
}
