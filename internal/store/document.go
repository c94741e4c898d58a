// Package store manages the menu configuration document: loading,
// validation, button resolution, mutation, and atomic persistence.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Reserved mapping targets that do not name a declared menu.
const (
	TargetBack  = "back"
	TargetMain  = "main"
	TargetAdmin = "admin"
)

// RootMenu is the menu every user starts in and can never navigate above.
const RootMenu = "main"

// SettingsLabel opens the admin settings menu. It is appended to the root
// menu for admins and resolves even without a mapping entry, so a broken
// document cannot lock admins out of the editor.
const SettingsLabel = "⚙️ Settings"

const placeholderToken = "YOUR_BOT_TOKEN_HERE"

// Menu is a titled grid of button labels.
type Menu struct {
	Title   string     `json:"title"`
	Buttons [][]string `json:"buttons"`
}

// HasButton reports whether label appears anywhere in the menu grid.
func (m Menu) HasButton(label string) bool {
	for _, row := range m.Buttons {
		for _, b := range row {
			if b == label {
				return true
			}
		}
	}
	return false
}

// Document is the persisted menu configuration.
type Document struct {
	BotToken       string            `json:"bot_token"`
	WelcomeMessage string            `json:"welcome_message"`
	AdminIDs       []int64           `json:"admin_ids"`
	Menus          map[string]Menu   `json:"menus"`
	ButtonMapping  map[string]string `json:"button_mapping"`
	Responses      map[string]string `json:"responses"`
}

// DefaultDocument returns a minimal valid starting document with the bot
// token left as a placeholder the operator must replace.
func DefaultDocument() *Document {
	return &Document{
		BotToken:       placeholderToken,
		WelcomeMessage: "Welcome! Use the buttons below to navigate.",
		AdminIDs:       []int64{},
		Menus: map[string]Menu{
			RootMenu: {
				Title:   "Main Menu",
				Buttons: [][]string{{"ℹ️ About"}},
			},
		},
		ButtonMapping: map[string]string{},
		Responses: map[string]string{
			"ℹ️ About": "This bot is powered by kiosk.",
		},
	}
}

func (d *Document) clone() *Document {
	c := &Document{
		BotToken:       d.BotToken,
		WelcomeMessage: d.WelcomeMessage,
		AdminIDs:       append([]int64(nil), d.AdminIDs...),
		Menus:          make(map[string]Menu, len(d.Menus)),
		ButtonMapping:  make(map[string]string, len(d.ButtonMapping)),
		Responses:      make(map[string]string, len(d.Responses)),
	}
	for name, m := range d.Menus {
		buttons := make([][]string, len(m.Buttons))
		for i, row := range m.Buttons {
			buttons[i] = append([]string(nil), row...)
		}
		c.Menus[name] = Menu{Title: m.Title, Buttons: buttons}
	}
	for k, v := range d.ButtonMapping {
		c.ButtonMapping[k] = v
	}
	for k, v := range d.Responses {
		c.Responses[k] = v
	}
	return c
}

// MenuNames returns the declared menu names in sorted order.
func (d *Document) MenuNames() []string {
	names := make([]string, 0, len(d.Menus))
	for name := range d.Menus {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError reports every problem found in a document, not just the
// first, so an operator can fix the file in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid menu document: " + strings.Join(e.Problems, "; ")
}

// Validate checks structural requirements. Mapping targets other than the
// reserved back/main/admin must name a declared menu.
func (d *Document) Validate() error {
	var problems []string

	if d.BotToken == "" || d.BotToken == placeholderToken {
		problems = append(problems, "bot_token is missing or still the placeholder")
	}
	if d.WelcomeMessage == "" {
		problems = append(problems, "welcome_message is required")
	}
	if d.Menus == nil {
		problems = append(problems, "menus is required")
	} else if _, ok := d.Menus[RootMenu]; !ok {
		problems = append(problems, fmt.Sprintf("menus must declare %q", RootMenu))
	}
	if d.ButtonMapping == nil {
		problems = append(problems, "button_mapping is required")
	}

	labels := make([]string, 0, len(d.ButtonMapping))
	for label := range d.ButtonMapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		target := d.ButtonMapping[label]
		switch target {
		case TargetBack, TargetMain, TargetAdmin:
			continue
		}
		if _, ok := d.Menus[target]; !ok {
			problems = append(problems, fmt.Sprintf("button %q maps to undeclared menu %q", label, target))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// WriteDefault writes a starter document to path. The result does not pass
// validation until the operator fills in the bot token.
func WriteDefault(path string) error {
	return writeDocument(path, DefaultDocument())
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse menu document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// writeDocument persists atomically: marshal, write a temp file in the same
// directory, then rename over the target.
func writeDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal menu document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".menu-*.json")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace menu document: %w", err)
	}
	return nil
}
