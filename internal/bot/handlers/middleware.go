// Package handlers contains the update dispatcher and the Telegram command
// handlers, along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that checks if the message sender is the configured operator.
// If not, it sends a "Not Authorized" message and stops processing by returning early.
// With no operator configured nobody is authorized.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil {
				return
			}

			operatorID := deps.Config.Telegram.OperatorID
			if update.Message.From != nil && operatorID != 0 && update.Message.From.ID == operatorID {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "AdminOnly")
			log.WarnContext(ctx, "Unauthorized access attempt", "chat_id", chatID)

			sendCtx, cancel := context.WithTimeout(ctx, deps.Config.Timeouts.Send)
			defer cancel()
			_, err := bot.SendMessage(sendCtx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.NotAuthorized,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
			}
		}
	}
}
