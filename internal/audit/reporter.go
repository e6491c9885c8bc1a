// Package audit composes and delivers edit reports to the operator.
package audit

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/editlogbot/internal/database"
)

// Telegram limits are in characters.
const (
	maxCaptionLength = 1024
	maxContentLength = 1800 // per side, keeps the report under the 4096 text limit

	mediaPlaceholder = "[media, no text]"
	emptyPlaceholder = "[empty]"
	unknownSender    = "unknown sender"
)

// Sender delivers HTML-formatted messages to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
}

// Outcome describes how a report was delivered.
type Outcome int

// Report delivery outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeDeliveredText
	OutcomeDeliveredPhoto
	OutcomeDeliveredTextFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeliveredText:
		return "delivered_text"
	case OutcomeDeliveredPhoto:
		return "delivered_photo"
	case OutcomeDeliveredTextFallback:
		return "delivered_text_fallback"
	default:
		return "failed"
	}
}

// Delivered reports whether the operator received something.
func (o Outcome) Delivered() bool {
	return o != OutcomeFailed
}

// Reporter sends edit reports to a single operator chat.
type Reporter struct {
	sender      Sender
	operatorID  int64
	sendTimeout time.Duration
	logger      *slog.Logger
}

// NewReporter creates a Reporter delivering to operatorID.
func NewReporter(sender Sender, operatorID int64, sendTimeout time.Duration, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{
		sender:      sender,
		operatorID:  operatorID,
		sendTimeout: sendTimeout,
		logger:      logger.With("component", "audit_reporter"),
	}
}

// Compose renders the HTML edit report for a stored snapshot and the new content.
func Compose(old *database.Snapshot, newText string) string {
	oldText := old.TextContent
	if oldText == "" {
		if old.MediaKind.HasMedia() {
			oldText = mediaPlaceholder
		} else {
			oldText = emptyPlaceholder
		}
	}
	if newText == "" {
		newText = emptyPlaceholder
	}
	oldText = truncate(oldText, maxContentLength)
	newText = truncate(newText, maxContentLength)

	var sb strings.Builder
	sb.WriteString("✏️ <b>Message edited</b>\n")
	sb.WriteString("👤 " + html.EscapeString(SenderLabel(old)) + "\n")
	sb.WriteString("❌ <b>Before:</b> " + html.EscapeString(oldText) + "\n")
	sb.WriteString("✅ <b>After:</b> " + html.EscapeString(newText))
	if old.ArchivedMediaURL != "" {
		fmt.Fprintf(&sb, "\n📎 <a href=\"%s\">%s</a>", html.EscapeString(old.ArchivedMediaURL), mediaLabel(old.MediaKind))
	}
	return sb.String()
}

// SenderLabel prefers the handle, then the display name.
func SenderLabel(s *database.Snapshot) string {
	switch {
	case s.SenderHandle != "":
		return "@" + s.SenderHandle
	case strings.TrimSpace(s.SenderDisplayName) != "":
		return strings.TrimSpace(s.SenderDisplayName)
	default:
		return unknownSender
	}
}

func mediaLabel(kind database.MediaKind) string {
	if !kind.HasMedia() {
		return "archived media"
	}
	return "archived " + strings.ReplaceAll(string(kind), "_", " ")
}

// Report composes and delivers one edit report. Photos are attached when the
// snapshot holds an archived photo; everything else goes out as text. A failed
// photo send falls back to text once. Errors are logged and never retried.
func (r *Reporter) Report(ctx context.Context, old *database.Snapshot, newText string) Outcome {
	log := r.logger.With("chat_id", old.ChatID, "message_id", old.MessageID, "media_kind", old.MediaKind)
	report := Compose(old, newText)

	if old.ArchivedMediaURL != "" && old.MediaKind == database.MediaPhoto {
		if utf8.RuneCountInString(report) <= maxCaptionLength {
			err := r.send(ctx, func(ctx context.Context) error {
				return r.sender.SendPhoto(ctx, r.operatorID, old.ArchivedMediaURL, report)
			})
			if err == nil {
				log.InfoContext(ctx, "Edit report delivered with photo")
				return OutcomeDeliveredPhoto
			}
			log.WarnContext(ctx, "Failed to deliver photo report, falling back to text", "error", err)
		} else {
			log.DebugContext(ctx, "Report too long for a caption, sending as text")
		}

		if err := r.sendText(ctx, report); err != nil {
			log.ErrorContext(ctx, "Failed to deliver edit report", "error", err)
			return OutcomeFailed
		}
		log.InfoContext(ctx, "Edit report delivered as text fallback")
		return OutcomeDeliveredTextFallback
	}

	if err := r.sendText(ctx, report); err != nil {
		log.ErrorContext(ctx, "Failed to deliver edit report", "error", err)
		return OutcomeFailed
	}
	log.InfoContext(ctx, "Edit report delivered")
	return OutcomeDeliveredText
}

// Notify sends a plain operator notice. Failures are logged and reported as false.
func (r *Reporter) Notify(ctx context.Context, text string) bool {
	if err := r.sendText(ctx, html.EscapeString(text)); err != nil {
		r.logger.WarnContext(ctx, "Failed to notify operator", "error", err)
		return false
	}
	return true
}

func (r *Reporter) sendText(ctx context.Context, text string) error {
	return r.send(ctx, func(ctx context.Context) error {
		return r.sender.SendText(ctx, r.operatorID, text)
	})
}

func (r *Reporter) send(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if r.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.sendTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// truncate cuts s to at most maxLen runes, marking the cut with an ellipsis.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}
