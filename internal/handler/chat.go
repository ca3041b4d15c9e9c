package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/dispatch"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

// handleText sends a free-text message to the current conversation.
func (h *Handler) handleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	text := strings.TrimSpace(msg.Text)
	state := middleware.GetState(ctx)
	if state == nil || text == "" {
		return
	}
	chatID := msg.Chat.ID
	log := middleware.Logger(ctx)

	if !state.HasIdentity() {
		h.reply(ctx, b, chatID, "Before we talk: /login, /register, or continue as a /guest.", startKeyboard(state))
		return
	}

	if err := h.ensureLoaded(ctx, state); err != nil {
		if backend.IsUnauthorized(err) {
			h.expire(ctx, b, state)
			return
		}
		// The conversation still works from what is held locally.
		log.Warn("load history before sending", "error", err)
	}

	if h.dispatcher.Busy(chatID) {
		h.reply(ctx, b, chatID, icon(state, "⏳")+"I'm still answering your previous message. This one is next.", nil)
	}

	res, err := h.dispatcher.Send(ctx, dispatch.Request{
		ChatID: chatID,
		State:  *state,
		Store:  h.history.Store(chatID),
		Text:   text,
		Typing: func(ctx context.Context) context.CancelFunc {
			return tg.StartTyping(ctx, b, chatID)
		},
	})
	if err != nil {
		log.Error("dispatch message", "error", err)
		h.reply(ctx, b, chatID, config.ApologyAnswer, nil)
		return
	}

	if res.Failed {
		log.Warn("completion failed", "error", res.Err, "session_id", res.SessionID)
		if backend.IsUnauthorized(res.Err) {
			h.expire(ctx, b, state)
			return
		}
		if !errors.Is(res.Err, context.Canceled) {
			h.tgLogger.LogError(res.Err, "completion")
		}
	}

	h.history.Remember(ctx, state, res.SessionID)

	replyTo := msg.ID
	if err := tg.SendLongMessage(ctx, b, chatID, tg.HTMLToText(res.Reply.Text), &replyTo); err != nil {
		log.Error("send reply", "error", err)
	}
}

// expire logs the chat out after the backend rejected its token.
func (h *Handler) expire(ctx context.Context, b *bot.Bot, state *domain.ClientState) {
	if err := h.auth.Logout(ctx, state); err != nil {
		middleware.Logger(ctx).Error("logout expired session", "error", err)
	}
	h.fail(ctx, b, state.ChatID, "expired session", domain.ErrUnauthorized)
}
