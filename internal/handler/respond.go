package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	if err := tg.SendText(ctx, b, chatID, text, markup); err != nil {
		middleware.Logger(ctx).Error("send reply", "error", err)
	}
}

// fail tells the user what went wrong. Unexpected errors are logged and
// mirrored to the operator chat; the user sees a generic message.
func (h *Handler) fail(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	text, expected := errorText(err)
	if !expected {
		middleware.Logger(ctx).Error(op, "error", err)
		h.tgLogger.LogError(err, op)
	}
	h.reply(ctx, b, chatID, text, nil)
}

// errorText maps an error to a user-facing message and reports whether the
// error is an expected outcome rather than a fault.
func errorText(err error) (string, bool) {
	var verr *domain.ValidationError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &verr):
		return "⚠️ " + capitalize(verr.Field) + " " + verr.Reason + ".", true
	case errors.Is(err, domain.ErrNotLoggedIn):
		return "Please /login, /register or continue as /guest first.", true
	case errors.Is(err, domain.ErrUnauthorized):
		return "Your session has expired. Please /login again.", true
	case errors.Is(err, domain.ErrForbidden):
		return "⛔ This command is for admins only.", true
	case errors.Is(err, domain.ErrGuestMode):
		return "This isn't available in guest mode. /register to keep your conversations.", true
	case errors.Is(err, domain.ErrSessionNotFound):
		return "That conversation no longer exists. See /history.", true
	case errors.Is(err, domain.ErrNoActiveSession):
		return "There is no open conversation. Write something to start one, or pick one from /history.", true
	case errors.Is(err, domain.ErrCategoryNotFound):
		return "I don't know that category. See /mood for the list.", true
	case errors.Is(err, domain.ErrNoQuotes):
		return "No quotes here yet.", true
	case errors.Is(err, domain.ErrPatternNotFound):
		return "I don't know that breathing pattern. Try /breathe.", true
	case errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Message != "":
		return "⚠️ " + apiErr.Message, true
	default:
		return "❌ Something went wrong. Please try again in a moment.", false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// requireIdentity returns the state of a logged-in user or guest. For
// logged-in users the token is verified first.
func (h *Handler) requireIdentity(ctx context.Context, b *bot.Bot, chatID int64) (*domain.ClientState, bool) {
	state := middleware.GetState(ctx)
	if state == nil {
		return nil, false
	}
	if !state.HasIdentity() {
		h.fail(ctx, b, chatID, "require identity", domain.ErrNotLoggedIn)
		return nil, false
	}
	if state.IsAuthenticated() {
		if err := h.auth.Verify(ctx, state); err != nil {
			h.fail(ctx, b, chatID, "verify token", err)
			return nil, false
		}
	}
	return state, true
}

func (h *Handler) requireAdmin(ctx context.Context, b *bot.Bot, chatID int64) (*domain.ClientState, bool) {
	state := middleware.GetState(ctx)
	if state == nil {
		return nil, false
	}
	if !state.IsAuthenticated() {
		h.fail(ctx, b, chatID, "require admin", domain.ErrNotLoggedIn)
		return nil, false
	}
	if err := h.auth.Verify(ctx, state); err != nil {
		h.fail(ctx, b, chatID, "verify token", err)
		return nil, false
	}
	if !state.IsAdmin() {
		h.fail(ctx, b, chatID, "require admin", domain.ErrForbidden)
		return nil, false
	}
	return state, true
}

// ensureLoaded pulls server history once per store lifetime.
func (h *Handler) ensureLoaded(ctx context.Context, state *domain.ClientState) error {
	if !state.IsAuthenticated() || h.history.Store(state.ChatID).Loaded() {
		return nil
	}
	_, err := h.history.Load(ctx, state)
	return err
}

// icon returns the emoji prefix for the calm theme and nothing for plain.
func icon(state *domain.ClientState, emoji string) string {
	if state != nil && state.Theme == "plain" {
		return ""
	}
	return emoji + " "
}

// commandArgs returns everything after the command word.
func commandArgs(text string) string {
	_, args, _ := parseCommand(text, "")
	return args
}

// splitPipe splits "a | b | c" into at most n trimmed parts.
func splitPipe(args string, n int) []string {
	parts := strings.SplitN(args, "|", n)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func callbackChat(update *models.Update) (chatID int64, messageID int) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return 0, 0
}

func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}
