// Package session tracks per-user navigation state: the menu history stack,
// any in-progress admin workflow, and idle eviction.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RootMenu is the bottom of every history stack.
const RootMenu = "main"

// FlowState is an in-progress multi-step admin conversation.
type FlowState struct {
	Task string
	Step int
	Data map[string]string
}

// Set records a collected value for the workflow.
func (f *FlowState) Set(key, value string) {
	if f.Data == nil {
		f.Data = map[string]string{}
	}
	f.Data[key] = value
}

// Get returns a collected value.
func (f *FlowState) Get(key string) string {
	return f.Data[key]
}

// Session is one user's conversation state on one channel. A session is only
// ever touched by its own user's messages, so it carries no lock of its own.
type Session struct {
	Channel  string
	SenderID string
	ChatID   string

	// History holds the menus entered below the root. An empty stack means
	// the user is at the root menu.
	History []string

	// Flow is the active admin workflow, nil when none is in progress.
	Flow *FlowState

	// Generation is the store generation the session last acted against.
	Generation int64

	LastSeen time.Time
}

// Current returns the menu the user is in.
func (s *Session) Current() string {
	if len(s.History) == 0 {
		return RootMenu
	}
	return s.History[len(s.History)-1]
}

// Enter pushes a menu onto the history. Re-entering the current menu is a
// no-op so repeated presses of the same button never inflate the stack.
func (s *Session) Enter(menu string) {
	if menu == RootMenu {
		s.History = s.History[:0]
		return
	}
	if menu == s.Current() {
		return
	}
	s.History = append(s.History, menu)
}

// Back pops one level. At the root it stays at the root.
func (s *Session) Back() string {
	if len(s.History) > 0 {
		s.History = s.History[:len(s.History)-1]
	}
	return s.Current()
}

// ToRoot clears the history back to the root menu.
func (s *Session) ToRoot() {
	s.History = s.History[:0]
}

// ClearFlow aborts any in-progress workflow.
func (s *Session) ClearFlow() {
	s.Flow = nil
}

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.LastSeen = time.Now()
}

// Manager holds all live sessions keyed by channel and sender.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func sessionKey(channel, senderID string) string {
	return channel + ":" + senderID
}

// GetOrCreate returns the session for a sender, creating it at the root menu
// on first contact.
func (m *Manager) GetOrCreate(channel, senderID, chatID string, generation int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(channel, senderID)
	if sess, ok := m.sessions[key]; ok {
		sess.Touch()
		return sess
	}

	sess := &Session{
		Channel:    channel,
		SenderID:   senderID,
		ChatID:     chatID,
		Generation: generation,
		LastSeen:   time.Now(),
	}
	m.sessions[key] = sess
	return sess
}

// Delete removes a session.
func (m *Manager) Delete(channel, senderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(channel, senderID))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle longer than idleTimeout and returns how many
// were removed. Sessions with an active workflow are kept; evicting them
// would silently drop a half-finished edit.
func (m *Manager) Sweep(idleTimeout time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	evicted := 0
	for key, sess := range m.sessions {
		if sess.Flow == nil && sess.LastSeen.Before(cutoff) {
			delete(m.sessions, key)
			evicted++
		}
	}
	return evicted
}

// StartSweeper runs Sweep on an interval until the context is cancelled.
// This should be run as a goroutine.
func (m *Manager) StartSweeper(ctx context.Context, interval, idleTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(idleTimeout); n > 0 {
				slog.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}
