package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/domain"
)

type ctxKey string

const StateKey ctxKey = "state"

// GetState extracts the chat's client state from context.
func GetState(ctx context.Context) *domain.ClientState {
	s, ok := ctx.Value(StateKey).(*domain.ClientState)
	if !ok {
		return nil
	}
	return s
}

// StateLoader is satisfied by *repository.ClientStates.
type StateLoader interface {
	GetOrDefault(ctx context.Context, chatID int64) (*domain.ClientState, error)
}

// LoadState returns middleware that loads the chat's client state into
// context. Updates from group chats are ignored.
func LoadState(states StateLoader) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			chatID, _, _ := updateChat(update)
			if chatID == 0 || !isPrivate(update) {
				return
			}

			state, err := states.GetOrDefault(ctx, chatID)
			if err != nil {
				Logger(ctx).Error("load client state", "error", err)
				return
			}
			ctx = context.WithValue(ctx, StateKey, state)
			ctx = context.WithValue(ctx, loggerKey, Logger(ctx).With(
				"user_id", state.UserID,
				"guest", state.IsGuest,
			))

			next(ctx, b, update)
		}
	}
}

func isPrivate(update *models.Update) bool {
	switch {
	case update.Message != nil:
		return update.Message.Chat.Type == "private"
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.Type == "private"
	default:
		return false
	}
}
