package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/config"
)

// Counter counts messages per chat in the current minute.
// *repository.RateLimits satisfies it.
type Counter interface {
	CheckAndIncrement(ctx context.Context, chatID int64) (int, error)
}

// RateLimit returns middleware that enforces per-minute rate limits.
func RateLimit(counter Counter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID

			count, err := counter.CheckAndIncrement(ctx, chatID)
			if err != nil {
				Logger(ctx).Error("rate limit check failed", "error", err)
				next(ctx, b, update)
				return
			}

			if count > config.RateLimitRegular {
				Logger(ctx).Debug("rate limited", "count", count, "limit", config.RateLimitRegular)
				// Tell the user once per window, then stay silent.
				if count == config.RateLimitRegular+1 {
					b.SendMessage(ctx, &bot.SendMessageParams{
						ChatID: chatID,
						Text:   "⏳ You're sending messages very quickly. Please wait a minute.",
					})
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
