package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var text string
	if state.HasIdentity() {
		text = fmt.Sprintf("%sWelcome back, %s.\n\n"+
			"I'm here to listen. Write whatever is on your mind, or pick something below.",
			icon(state, "🌿"), state.Name())
	} else {
		text = icon(state, "🌿") + "Hi, I'm MindChat, a companion for the heavier days and the ordinary ones.\n\n" +
			"/login or /register to keep your conversations, or continue as a guest. " +
			"Guest conversations are forgotten when you leave."
	}
	h.reply(ctx, b, chatID, text, startKeyboard(state))
}

func startKeyboard(state *domain.ClientState) *models.InlineKeyboardMarkup {
	if !state.HasIdentity() {
		return tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton(icon(state, "👤")+"Continue as guest", "menu_guest")),
			tg.ButtonRow(
				tg.InlineButton(icon(state, "💬")+"Quote", "menu_quote"),
				tg.InlineButton(icon(state, "🌬")+"Breathe", "menu_breathe"),
			),
		)
	}
	return tg.InlineKeyboard(
		tg.ButtonRow(
			tg.InlineButton(icon(state, "📚")+"History", "menu_history"),
			tg.InlineButton(icon(state, "🌱")+"New chat", "menu_new"),
		),
		tg.ButtonRow(
			tg.InlineButton(icon(state, "💬")+"Quote", "menu_quote"),
			tg.InlineButton(icon(state, "🙂")+"Mood", "menu_mood"),
			tg.InlineButton(icon(state, "🌬")+"Breathe", "menu_breathe"),
		),
	)
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	h.reply(ctx, b, update.Message.Chat.ID, h.helpText(state), nil)
}

func (h *Handler) helpText(state *domain.ClientState) string {
	names := make([]string, 0, len(h.commands))
	for name, c := range h.commands {
		if c.help == "" || (c.admin && !state.IsAdmin()) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := h.commands[names[i]].admin, h.commands[names[j]].admin
		if ai != aj {
			return !ai
		}
		return names[i] < names[j]
	})

	var sb strings.Builder
	sb.WriteString(icon(state, "📋") + "Commands\n\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "/%s %s\n", name, h.commands[name].help)
	}
	sb.WriteString("\nAnything else you write goes to the current conversation.")
	return sb.String()
}

func (h *Handler) handleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	state := middleware.GetState(ctx)
	chatID, _ := callbackChat(update)
	if state == nil || chatID == 0 {
		return
	}

	switch strings.TrimPrefix(update.CallbackQuery.Data, "menu_") {
	case "guest":
		h.enterGuest(ctx, b, chatID, state, update.CallbackQuery.From.FirstName)
	case "history":
		h.showHistory(ctx, b, chatID)
	case "new":
		h.startNew(ctx, b, chatID)
	case "quote":
		h.sendQuote(ctx, b, chatID, state)
	case "mood":
		h.showMoods(ctx, b, chatID, state)
	case "breathe":
		h.showPatterns(ctx, b, chatID, state)
	}
}
