package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

// Messages carrying passwords are deleted from the chat before anything
// else happens.

func (h *Handler) handleLogin(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	msg := update.Message
	tg.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID)

	fields := strings.Fields(commandArgs(msg.Text))
	if len(fields) != 2 {
		h.reply(ctx, b, msg.Chat.ID, "Usage: /login <email> <password>\nI'll delete your message right away.", nil)
		return
	}

	if err := h.auth.Login(ctx, state, fields[0], fields[1]); err != nil {
		h.fail(ctx, b, msg.Chat.ID, "login", err)
		return
	}
	middleware.Logger(ctx).Info("user logged in", "user_id", state.UserID)

	if err := h.ensureLoaded(ctx, state); err != nil {
		middleware.Logger(ctx).Warn("load history after login", "error", err)
	}
	h.reply(ctx, b, msg.Chat.ID, fmt.Sprintf("%sWelcome back, %s. How are you feeling today?", icon(state, "🌿"), state.Name()), startKeyboard(state))
}

func (h *Handler) handleRegister(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	msg := update.Message
	tg.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID)

	fields := strings.Fields(commandArgs(msg.Text))
	if len(fields) < 4 {
		h.reply(ctx, b, msg.Chat.ID, "Usage: /register <email> <password> <password again> <your name>\nI'll delete your message right away.", nil)
		return
	}
	name := strings.Join(fields[3:], " ")

	if err := h.auth.Register(ctx, state, name, fields[0], fields[1], fields[2]); err != nil {
		h.fail(ctx, b, msg.Chat.ID, "register", err)
		return
	}
	middleware.Logger(ctx).Info("user registered", "user_id", state.UserID)
	h.tgLogger.LogRegistration(msg.Chat.ID, state.Name(), state.Email)

	h.reply(ctx, b, msg.Chat.ID, fmt.Sprintf("%sWelcome, %s. Your conversations will be kept safe from now on.", icon(state, "🎉"), state.Name()), startKeyboard(state))
}

func (h *Handler) handleGuest(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	name := commandArgs(update.Message.Text)
	if name == "" && update.Message.From != nil {
		name = update.Message.From.FirstName
	}
	h.enterGuest(ctx, b, update.Message.Chat.ID, state, name)
}

func (h *Handler) enterGuest(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState, name string) {
	if state.IsAuthenticated() {
		h.reply(ctx, b, chatID, "You're signed in already. /logout first if you want to continue as a guest.", nil)
		return
	}
	if err := h.auth.EnterGuest(ctx, state, name); err != nil {
		h.fail(ctx, b, chatID, "enter guest mode", err)
		return
	}
	h.reply(ctx, b, chatID, fmt.Sprintf("%sHi %s. You're chatting as a guest, so nothing is saved. Write whenever you're ready.", icon(state, "👋"), state.Name()), nil)
}

func (h *Handler) handleLogout(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !state.HasIdentity() {
		h.reply(ctx, b, chatID, "You're not signed in.", nil)
		return
	}
	h.stopBreathing(chatID)
	if err := h.auth.Logout(ctx, state); err != nil {
		h.fail(ctx, b, chatID, "logout", err)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "👋")+"Signed out. Take care of yourself.", nil)
}

func (h *Handler) handleProfile(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		return
	}

	if name := commandArgs(update.Message.Text); name != "" {
		if err := h.auth.Rename(ctx, state, name); err != nil {
			h.fail(ctx, b, chatID, "update profile", err)
			return
		}
		h.reply(ctx, b, chatID, fmt.Sprintf("%sI'll call you %s from now on.", icon(state, "✅"), state.Name()), nil)
		return
	}
	if err := h.auth.Refresh(ctx, state); err != nil {
		middleware.Logger(ctx).Warn("refresh profile", "error", err)
	}
	h.reply(ctx, b, chatID, profileText(state), nil)
}

func profileText(state *domain.ClientState) string {
	var sb strings.Builder
	sb.WriteString(icon(state, "👤") + "Profile\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", state.Name())
	if state.IsGuest {
		sb.WriteString("Mode: guest (nothing is saved)\n")
	} else {
		fmt.Fprintf(&sb, "Email: %s\n", state.Email)
		role := state.Role
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&sb, "Role: %s\n", role)
	}
	fmt.Fprintf(&sb, "Theme: %s\n", state.Theme)
	sb.WriteString("\n/profile <new name> changes your name.")
	return sb.String()
}

func (h *Handler) handlePassword(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	tg.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID)

	state, ok := h.requireIdentity(ctx, b, msg.Chat.ID)
	if !ok {
		return
	}
	if state.IsGuest {
		h.fail(ctx, b, msg.Chat.ID, "change password", domain.ErrGuestMode)
		return
	}

	fields := strings.Fields(commandArgs(msg.Text))
	if len(fields) != 3 {
		h.reply(ctx, b, msg.Chat.ID, "Usage: /password <current> <new> <new again>\nI'll delete your message right away.", nil)
		return
	}
	if err := h.auth.ChangePassword(ctx, state, fields[0], fields[1], fields[2]); err != nil {
		h.fail(ctx, b, msg.Chat.ID, "change password", err)
		return
	}
	h.reply(ctx, b, msg.Chat.ID, icon(state, "🔒")+"Password changed.", nil)
}

func (h *Handler) handleForgot(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	chatID := update.Message.Chat.ID
	email := commandArgs(update.Message.Text)
	if email == "" {
		h.reply(ctx, b, chatID, "Usage: /forgot <email>", nil)
		return
	}
	if err := h.auth.ForgotPassword(ctx, email); err != nil {
		h.fail(ctx, b, chatID, "forgot password", err)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "📧")+"If that address has an account, a reset link is on its way.", nil)
}
