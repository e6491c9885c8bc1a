package handlers

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/editlogbot/internal/database"
)

// EventKind is the classification of an inbound update.
type EventKind int

// Update classifications.
const (
	EventIgnored EventKind = iota
	EventNewMessage
	EventEditedMessage
)

func (k EventKind) String() string {
	switch k {
	case EventNewMessage:
		return "new_message"
	case EventEditedMessage:
		return "edited_message"
	default:
		return "ignored"
	}
}

// Event is a classified update. Message is nil for ignored events.
type Event struct {
	Kind    EventKind
	Message *models.Message
}

// Classify maps an update to exactly one event kind. Edits are ignored when
// auditing is disabled since there is nobody to report to.
func Classify(update *models.Update, auditEnabled bool) Event {
	switch {
	case update == nil:
		return Event{Kind: EventIgnored}
	case update.Message != nil:
		return Event{Kind: EventNewMessage, Message: update.Message}
	case update.EditedMessage != nil && auditEnabled:
		return Event{Kind: EventEditedMessage, Message: update.EditedMessage}
	default:
		return Event{Kind: EventIgnored}
	}
}

// Outcome is the result of dispatching one update.
type Outcome int

// Dispatch outcomes.
const (
	OutcomeIgnored Outcome = iota
	OutcomePersisted
	OutcomePersistFailed
	OutcomeReported
	OutcomeReportFailed
	OutcomeNotFound
	OutcomeLookupFailed
	OutcomePanicked
)

func (o Outcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomePersistFailed:
		return "persist_failed"
	case OutcomeReported:
		return "reported"
	case OutcomeReportFailed:
		return "report_failed"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeLookupFailed:
		return "lookup_failed"
	case OutcomePanicked:
		return "panicked"
	default:
		return "ignored"
	}
}

// Dispatcher routes updates to the persist path or the audit path.
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	deps HandlerDeps
}

// NewDispatcher creates a Dispatcher over the dependency bundle.
func NewDispatcher(deps HandlerDeps) *Dispatcher {
	deps.Logger = deps.Logger.With("component", "dispatcher")
	return &Dispatcher{deps: deps}
}

// Middleware dispatches every update before handing it to the next handler,
// so command messages are archived like any other message.
func (d *Dispatcher) Middleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		d.Dispatch(ctx, update)
		next(ctx, b, update)
	}
}

// Dispatch classifies and handles one update. Failures of any kind, including
// panics, stop at this boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, update *models.Update) (outcome Outcome) {
	log := d.deps.Logger
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Recovered from panic while handling update",
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			outcome = OutcomePanicked
		}
	}()

	event := Classify(update, d.deps.Config.AuditEnabled())
	switch event.Kind {
	case EventNewMessage:
		outcome = d.persist(ctx, event.Message)
	case EventEditedMessage:
		outcome = d.audit(ctx, event.Message)
	default:
		outcome = OutcomeIgnored
	}

	if update != nil {
		log.DebugContext(ctx, "Update dispatched", "update_id", update.ID, "event", event.Kind, "outcome", outcome)
	}
	return outcome
}

func (d *Dispatcher) persist(ctx context.Context, msg *models.Message) Outcome {
	log := d.deps.Logger.With("chat_id", msg.Chat.ID, "message_id", msg.ID)

	snapshot := newSnapshot(msg)
	archived := false
	if ref, ok := detectMedia(msg); ok {
		res := d.deps.Archiver.Archive(ctx, ref)
		snapshot.MediaKind = res.Kind
		snapshot.ArchivedMediaURL = res.URL
		archived = res.Archived()
		if !archived {
			log.WarnContext(ctx, "Media not archived, recording message without it", "media_kind", ref.Kind, "error", res.Err)
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, d.deps.Config.Timeouts.Store)
	defer cancel()
	if err := d.deps.Store.InsertSnapshot(storeCtx, snapshot); err != nil {
		log.ErrorContext(ctx, "Failed to save snapshot", "error", err)
		return OutcomePersistFailed
	}

	log.InfoContext(ctx, "Snapshot saved", "media_kind", snapshot.MediaKind, "archived", archived)
	return OutcomePersisted
}

func (d *Dispatcher) audit(ctx context.Context, msg *models.Message) Outcome {
	log := d.deps.Logger.With("chat_id", msg.Chat.ID, "message_id", msg.ID)

	storeCtx, cancel := context.WithTimeout(ctx, d.deps.Config.Timeouts.Store)
	old, err := d.deps.Store.FindSnapshot(storeCtx, msg.Chat.ID, msg.ID)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Failed to look up snapshot for edited message", "error", err)
		return OutcomeLookupFailed
	}
	if old == nil {
		log.DebugContext(ctx, "Edited message was never recorded, skipping report")
		return OutcomeNotFound
	}

	delivery := d.deps.Reporter.Report(ctx, old, textOrCaption(msg))
	if !delivery.Delivered() {
		log.WarnContext(ctx, "Edit report was not delivered", "delivery", delivery)
		return OutcomeReportFailed
	}
	log.DebugContext(ctx, "Edit report delivered", "delivery", delivery)
	return OutcomeReported
}

// newSnapshot copies identity, sender, and text from a message. Media fields
// are filled in by the caller.
func newSnapshot(msg *models.Message) *database.Snapshot {
	s := &database.Snapshot{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		TextContent: textOrCaption(msg),
		MediaKind:   database.MediaNone,
	}

	switch {
	case msg.From != nil:
		id := msg.From.ID
		s.SenderID = &id
		s.SenderDisplayName = displayName(msg.From)
		s.SenderHandle = msg.From.Username
	case msg.SenderChat != nil:
		s.SenderDisplayName = msg.SenderChat.Title
		s.SenderHandle = msg.SenderChat.Username
	}
	return s
}
