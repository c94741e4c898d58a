package audit

import "time"

// Event is a single recorded interaction or configuration change.
type Event struct {
	ID        int64     `json:"id"`
	TraceID   string    `json:"trace_id"`
	Channel   string    `json:"channel"`
	SenderID  string    `json:"sender_id"`
	EventType string    `json:"event_type"`
	Label     string    `json:"label,omitempty"`
	Menu      string    `json:"menu,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Event types.
const (
	EventPress    = "press"
	EventNavigate = "navigate"
	EventReply    = "reply"
	EventFallback = "fallback"
	EventDenied   = "denied"
	EventEdit     = "edit"
	EventReload   = "reload"
)

const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT,
	channel TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	label TEXT DEFAULT '',
	menu TEXT DEFAULT '',
	detail TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_trace ON events(trace_id);
CREATE INDEX IF NOT EXISTS idx_events_sender ON events(sender_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
`
