package handler

import (
	"context"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleTheme(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	chatID := update.Message.Chat.ID

	theme := strings.ToLower(commandArgs(update.Message.Text))
	if theme == "" {
		var row []models.InlineKeyboardButton
		for _, t := range config.Themes {
			label := t
			if t == state.Theme {
				label += " ✅"
			}
			row = append(row, tg.InlineButton(label, "theme_"+t))
		}
		h.reply(ctx, b, chatID, "Choose how my messages look.", tg.InlineKeyboard(row))
		return
	}
	h.setTheme(ctx, b, chatID, state, theme)
}

func (h *Handler) handleThemePick(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	state := middleware.GetState(ctx)
	chatID, _ := callbackChat(update)
	if state == nil || chatID == 0 {
		return
	}
	h.setTheme(ctx, b, chatID, state, strings.TrimPrefix(update.CallbackQuery.Data, "theme_"))
}

func (h *Handler) setTheme(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState, theme string) {
	if !slices.Contains(config.Themes, theme) {
		h.fail(ctx, b, chatID, "set theme", &domain.ValidationError{
			Field:  "theme",
			Reason: "must be one of " + strings.Join(config.Themes, ", "),
		})
		return
	}
	state.Theme = theme
	if err := h.states.Save(ctx, state); err != nil {
		h.fail(ctx, b, chatID, "save theme", err)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "🎨")+"Theme set to "+theme+".", nil)
}
