// Package router consumes inbound messages from the bus, routes them through
// commands, admin workflows, and menu navigation, and publishes replies.
package router

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kioskbot/kiosk/internal/admin"
	"github.com/kioskbot/kiosk/internal/audit"
	"github.com/kioskbot/kiosk/internal/bus"
	"github.com/kioskbot/kiosk/internal/events"
	"github.com/kioskbot/kiosk/internal/menu"
	"github.com/kioskbot/kiosk/internal/session"
	"github.com/kioskbot/kiosk/internal/store"
)

// Router dispatches one inbound message at a time. The store is the only
// shared mutable state; sessions are only touched by their own user's
// messages.
type Router struct {
	bus      *bus.MessageBus
	store    *store.Store
	sessions *session.Manager
	nav      *menu.Navigator
	admin    *admin.Workflow

	// Optional sinks, nil when disabled.
	audit  *audit.Service
	events events.Publisher
}

// New creates a router. audit and publisher may be nil.
func New(b *bus.MessageBus, s *store.Store, sessions *session.Manager,
	auditSvc *audit.Service, publisher events.Publisher) *Router {
	nav := menu.NewNavigator(s)
	return &Router{
		bus:      b,
		store:    s,
		sessions: sessions,
		nav:      nav,
		admin:    admin.New(s, nav),
		audit:    auditSvc,
		events:   publisher,
	}
}

// Run consumes inbound messages until the context is cancelled.
func (r *Router) Run(ctx context.Context) error {
	slog.Info("router started")
	for {
		msg, err := r.bus.ConsumeInbound(ctx)
		if err != nil {
			slog.Info("router stopped", "reason", err)
			return err
		}
		r.handle(ctx, msg)
	}
}

func (r *Router) send(msg *bus.InboundMessage, render menu.Render) {
	r.bus.PublishOutbound(&bus.OutboundMessage{
		Channel:        msg.Channel,
		ChatID:         msg.ChatID,
		TraceID:        msg.TraceID,
		Content:        render.Text,
		Keyboard:       render.Keyboard,
		RemoveKeyboard: render.RemoveKeyboard,
	})
}

func (r *Router) record(ctx context.Context, ev audit.Event) {
	if r.audit != nil {
		if err := r.audit.Record(ev); err != nil {
			slog.Warn("audit record failed", "error", err)
		}
	}
	if r.events != nil {
		if err := r.events.Publish(ctx, ev); err != nil {
			slog.Warn("event publish failed", "error", err)
		}
	}
}

func (r *Router) handle(ctx context.Context, msg *bus.InboundMessage) {
	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}
	log := slog.With("trace_id", msg.TraceID, "channel", msg.Channel, "sender", msg.SenderID)

	gen := r.store.Generation()
	sess := r.sessions.GetOrCreate(msg.Channel, msg.SenderID, msg.ChatID, gen)
	isAdmin := r.store.IsAdmin(msg.SenderID)

	// A reload under an older session invalidates whatever the user was
	// doing against the previous document.
	if sess.Generation != gen {
		hadFlow := sess.Flow != nil
		sess.ClearFlow()
		sess.ToRoot()
		sess.Generation = gen
		if hadFlow {
			log.Info("workflow cancelled by config reload")
			r.send(msg, menu.Render{Text: "The configuration was reloaded and your operation was cancelled."})
			r.send(msg, r.nav.MenuRender(store.RootMenu, isAdmin))
			r.record(ctx, audit.Event{TraceID: msg.TraceID, Channel: msg.Channel,
				SenderID: msg.SenderID, EventType: audit.EventReload, Detail: "workflow cancelled"})
			return
		}
	}

	if msg.Command != "" {
		r.handleCommand(ctx, msg, sess, isAdmin, log)
		return
	}

	if sess.Flow != nil {
		task := sess.Flow.Task
		render := r.admin.HandleInput(sess, msg.SenderID, msg.Content)
		r.send(msg, render)
		r.record(ctx, audit.Event{TraceID: msg.TraceID, Channel: msg.Channel,
			SenderID: msg.SenderID, EventType: audit.EventEdit, Label: task})
		return
	}

	label := msg.Content
	action := r.store.Resolve(label)

	if action.Kind == store.ActionAdmin {
		render := r.admin.Open(sess, msg.SenderID)
		r.send(msg, render)
		eventType := audit.EventNavigate
		if !isAdmin {
			log.Warn("settings access denied")
			eventType = audit.EventDenied
		}
		r.record(ctx, audit.Event{TraceID: msg.TraceID, Channel: msg.Channel,
			SenderID: msg.SenderID, EventType: eventType, Label: label})
		return
	}

	if action.Kind == store.ActionNone {
		if render, handled := r.admin.HandleButton(sess, msg.SenderID, label); handled {
			r.send(msg, render)
			eventType := audit.EventEdit
			if !isAdmin {
				eventType = audit.EventDenied
			}
			r.record(ctx, audit.Event{TraceID: msg.TraceID, Channel: msg.Channel,
				SenderID: msg.SenderID, EventType: eventType, Label: label})
			return
		}
	}

	render := r.nav.Apply(sess, action, label, isAdmin)
	r.send(msg, render)

	eventType := audit.EventFallback
	switch action.Kind {
	case store.ActionNavigate, store.ActionBack, store.ActionRoot:
		eventType = audit.EventNavigate
	case store.ActionRespond:
		eventType = audit.EventReply
	}
	log.Debug("press handled", "label", label, "menu", sess.Current())
	r.record(ctx, audit.Event{TraceID: msg.TraceID, Channel: msg.Channel,
		SenderID: msg.SenderID, EventType: eventType, Label: label, Menu: sess.Current()})
}

func (r *Router) handleCommand(ctx context.Context, msg *bus.InboundMessage,
	sess *session.Session, isAdmin bool, log *slog.Logger) {
	log.Info("command received", "command", msg.Command)

	switch msg.Command {
	case "start":
		for _, render := range r.nav.Start(sess, msg.SenderID, isAdmin) {
			r.send(msg, render)
		}
	case "help":
		r.send(msg, r.nav.Help())
	case "menu":
		r.send(msg, r.nav.Root(sess, isAdmin))
	case "cancel":
		r.send(msg, r.admin.Cancel(sess, msg.SenderID))
	default:
		r.send(msg, menu.Render{Text: "Unknown command. Try /help."})
	}
	r.record(ctx, audit.Event{TraceID: msg.TraceID, Channel: msg.Channel,
		SenderID: msg.SenderID, EventType: audit.EventNavigate, Label: "/" + msg.Command})
}
