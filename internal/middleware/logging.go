package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

const loggerKey ctxKey = "logger"

// Logger returns the update-scoped logger, or the default one outside an
// update.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// Logging returns middleware that tags the update with a request id and logs
// processing time.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			chatID, userID, updateType := updateChat(update)

			log := slog.With(
				"request_id", uuid.NewString(),
				"chat_id", chatID,
			)
			ctx = context.WithValue(ctx, loggerKey, log)

			next(ctx, b, update)

			log.Debug("update processed",
				"type", updateType,
				"user_id", userID,
				"duration", time.Since(start),
			)
		}
	}
}
