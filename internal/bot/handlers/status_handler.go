package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatusHandler returns a handler for the operator-only /status command.
// It pings the snapshot store and replies with the result.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps}.Handle
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := h.deps.Config.Messages.StatusOK
	pingCtx, cancel := context.WithTimeout(ctx, h.deps.Config.Timeouts.Store)
	err := h.deps.Store.Ping(pingCtx)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Snapshot store ping failed", "error", err)
		reply = h.deps.Config.Messages.StatusFail
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.deps.Config.Timeouts.Send)
	defer cancel()
	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send status reply", "error", err, "chat_id", chatID)
	}
}
