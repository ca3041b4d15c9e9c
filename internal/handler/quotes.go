package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleQuote(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	h.sendQuote(ctx, b, update.Message.Chat.ID, state)
}

func (h *Handler) sendQuote(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState) {
	q, err := h.content.RandomQuote(ctx, state.Token)
	if err != nil {
		h.fail(ctx, b, chatID, "random quote", err)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "💬")+service.FormatQuote(q.Text, q.Author), nil)
}

func (h *Handler) handleMood(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	chatID := update.Message.Chat.ID

	mood := commandArgs(update.Message.Text)
	if mood == "" {
		h.showMoods(ctx, b, chatID, state)
		return
	}
	h.sendMoodQuote(ctx, b, chatID, state, mood)
}

func (h *Handler) showMoods(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState) {
	cats, err := h.content.Categories(ctx, state.Token)
	if err != nil {
		h.fail(ctx, b, chatID, "list categories", err)
		return
	}
	if len(cats) == 0 {
		h.fail(ctx, b, chatID, "list categories", domain.ErrNoQuotes)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "🙂")+"How are you feeling right now?", moodKeyboard(cats))
}

func moodKeyboard(cats []domain.Category) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, c := range cats {
		row = append(row, tg.InlineButton(c.Name, "mood_"+c.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tg.InlineKeyboard(rows...)
}

func (h *Handler) handleMoodPick(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	state := middleware.GetState(ctx)
	chatID, _ := callbackChat(update)
	if state == nil || chatID == 0 {
		return
	}
	h.sendMoodQuote(ctx, b, chatID, state, strings.TrimPrefix(update.CallbackQuery.Data, "mood_"))
}

func (h *Handler) sendMoodQuote(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState, mood string) {
	q, err := h.content.MoodQuote(ctx, state.Token, mood)
	if err != nil {
		h.fail(ctx, b, chatID, "mood quote", err)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "💬")+service.FormatQuote(q.Text, q.Author), nil)
}

func (h *Handler) handleDaily(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.cfg.DigestEnabled {
		h.reply(ctx, b, chatID, "The daily quote is switched off on this bot.", nil)
		return
	}

	on, err := h.digest.Toggle(ctx, chatID)
	if err != nil {
		h.fail(ctx, b, chatID, "toggle daily quote", err)
		return
	}
	if on {
		h.reply(ctx, b, chatID, icon(state, "🌅")+"You'll get a quote every morning. /daily again to stop.", nil)
		return
	}
	h.reply(ctx, b, chatID, icon(state, "🌙")+"Daily quotes stopped.", nil)
}
