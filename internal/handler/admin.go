package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

const adminListLimit = 30

func (h *Handler) handleAdmin(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}

	stats, err := h.content.Stats(ctx, state)
	if err != nil {
		h.fail(ctx, b, chatID, "dashboard stats", err)
		return
	}
	h.reply(ctx, b, chatID, formatStats(stats)+"\n\n"+h.helpText(state), nil)
}

func formatStats(s *service.DashboardStats) string {
	var sb strings.Builder
	sb.WriteString("📊 Dashboard\n\n")
	fmt.Fprintf(&sb, "Users: %d (admins: %d)\n", s.Users, s.Admins)
	fmt.Fprintf(&sb, "Quotes: %d in %d categories\n", s.Quotes, s.Categories)
	fmt.Fprintf(&sb, "Content items: %d\n", s.Contents)
	if len(s.Shares) > 0 {
		sb.WriteString("\nQuotes by category\n")
		for _, share := range s.Shares {
			fmt.Fprintf(&sb, "• %s: %d (%s%%)\n", share.Category, share.Quotes, share.Percent.StringFixed(1))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (h *Handler) handleCategories(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}

	cats, err := h.content.Categories(ctx, state.Token)
	if err != nil {
		h.fail(ctx, b, chatID, "list categories", err)
		return
	}
	if len(cats) == 0 {
		h.reply(ctx, b, chatID, "No categories yet. /category_add <name> | [description]", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 Categories\n")
	for _, c := range cats {
		fmt.Fprintf(&sb, "\n• %s [%s]", c.Name, c.ID)
		if c.Description != "" {
			fmt.Fprintf(&sb, "\n  %s", c.Description)
		}
	}
	h.reply(ctx, b, chatID, sb.String(), nil)
}

func (h *Handler) handleCategoryAdd(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	args := commandArgs(update.Message.Text)
	if args == "" {
		h.reply(ctx, b, chatID, "Usage: /category_add <name> | [description]", nil)
		return
	}
	parts := splitPipe(args, 2)
	desc := ""
	if len(parts) > 1 {
		desc = parts[1]
	}

	cat, err := h.content.AddCategory(ctx, state, parts[0], desc)
	if err != nil {
		h.fail(ctx, b, chatID, "add category", err)
		return
	}
	h.adminDone(ctx, b, state, fmt.Sprintf("category added: %s [%s]", cat.Name, cat.ID))
}

func (h *Handler) handleCategoryDel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	ref := commandArgs(update.Message.Text)
	if ref == "" {
		h.reply(ctx, b, chatID, "Usage: /category_del <name or id>", nil)
		return
	}
	if err := h.content.DeleteCategory(ctx, state, ref); err != nil {
		h.fail(ctx, b, chatID, "delete category", err)
		return
	}
	h.adminDone(ctx, b, state, "category deleted: "+ref)
}

func (h *Handler) handleQuoteAdd(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	parts := splitPipe(commandArgs(update.Message.Text), 3)
	if len(parts) < 2 {
		h.reply(ctx, b, chatID, "Usage: /quote_add <category> | <text> | [author]", nil)
		return
	}
	author := ""
	if len(parts) > 2 {
		author = parts[2]
	}

	q, err := h.content.AddQuote(ctx, state, parts[0], parts[1], author)
	if err != nil {
		h.fail(ctx, b, chatID, "add quote", err)
		return
	}
	h.adminDone(ctx, b, state, fmt.Sprintf("quote added [%s]: %s", q.ID, truncate(q.Text, 80)))
}

func (h *Handler) handleQuoteDel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}

	id := commandArgs(update.Message.Text)
	if id == "" {
		quotes, err := h.content.Quotes(ctx, state.Token)
		if err != nil {
			h.fail(ctx, b, chatID, "list quotes", err)
			return
		}
		h.reply(ctx, b, chatID, renderQuoteList(quotes, config.QuotesPerPage), nil)
		return
	}

	if err := h.content.DeleteQuote(ctx, state, id); err != nil {
		h.fail(ctx, b, chatID, "delete quote", err)
		return
	}
	h.adminDone(ctx, b, state, "quote deleted: "+id)
}

// renderQuoteList shows the most recent quotes with their ids.
func renderQuoteList(quotes []domain.Quote, limit int) string {
	if len(quotes) == 0 {
		return "No quotes yet. /quote_add <category> | <text> | [author]"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "💬 Quotes (%d)\n", len(quotes))
	start := max(0, len(quotes)-limit)
	for _, q := range quotes[start:] {
		fmt.Fprintf(&sb, "\n[%s] %s", q.ID, truncate(q.Text, 60))
		if q.Category != "" {
			fmt.Fprintf(&sb, " (%s)", q.Category)
		}
	}
	sb.WriteString("\n\n/quote_del <id> deletes one.")
	return sb.String()
}

func (h *Handler) handleContents(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	items, err := h.content.Contents(ctx, state)
	if err != nil {
		h.fail(ctx, b, chatID, "list contents", err)
		return
	}
	if len(items) == 0 {
		h.reply(ctx, b, chatID, "Nothing published yet. /content_add <title> | <body> | [category]", nil)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📰 Content (%d)\n", len(items))
	for _, c := range items[:min(len(items), adminListLimit)] {
		fmt.Fprintf(&sb, "\n[%s] %s", c.ID, c.Title)
		if c.Category != "" {
			fmt.Fprintf(&sb, " (%s)", c.Category)
		}
	}
	if err := tg.SendLongMessage(ctx, b, chatID, sb.String(), nil); err != nil {
		middleware.Logger(ctx).Error("send content list", "error", err)
	}
}

func (h *Handler) handleContentAdd(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	parts := splitPipe(commandArgs(update.Message.Text), 3)
	if len(parts) < 2 {
		h.reply(ctx, b, chatID, "Usage: /content_add <title> | <body> | [category]", nil)
		return
	}
	category := ""
	if len(parts) > 2 {
		category = parts[2]
	}
	if err := h.content.AddContent(ctx, state, parts[0], parts[1], category); err != nil {
		h.fail(ctx, b, chatID, "add content", err)
		return
	}
	h.adminDone(ctx, b, state, "content added: "+parts[0])
}

func (h *Handler) handleContentDel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	id := commandArgs(update.Message.Text)
	if id == "" {
		h.reply(ctx, b, chatID, "Usage: /content_del <id>. /contents lists ids.", nil)
		return
	}
	if err := h.content.DeleteContent(ctx, state, id); err != nil {
		h.fail(ctx, b, chatID, "delete content", err)
		return
	}
	h.adminDone(ctx, b, state, "content deleted: "+id)
}

func (h *Handler) handleUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	users, err := h.content.Users(ctx, state)
	if err != nil {
		h.fail(ctx, b, chatID, "list users", err)
		return
	}
	if err := tg.SendLongMessage(ctx, b, chatID, renderUsers(users, adminListLimit), nil); err != nil {
		middleware.Logger(ctx).Error("send user list", "error", err)
	}
}

func renderUsers(users []domain.UserSummary, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Users (%d)\n", len(users))
	for _, u := range users[:min(len(users), limit)] {
		fmt.Fprintf(&sb, "\n[%s] %s (%s)", u.ID, u.Name, u.Email)
		if u.Role == "admin" {
			sb.WriteString(" admin")
		}
	}
	if len(users) > limit {
		fmt.Fprintf(&sb, "\n\n...and %d more", len(users)-limit)
	}
	return sb.String()
}

func (h *Handler) handleUserDel(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireAdmin(ctx, b, chatID)
	if !ok {
		return
	}
	id := commandArgs(update.Message.Text)
	if id == "" {
		h.reply(ctx, b, chatID, "Usage: /user_del <id>. /users lists ids.", nil)
		return
	}
	if err := h.content.DeleteUser(ctx, state, id); err != nil {
		h.fail(ctx, b, chatID, "delete user", err)
		return
	}
	h.adminDone(ctx, b, state, "user deleted: "+id)
}

func (h *Handler) adminDone(ctx context.Context, b *bot.Bot, state *domain.ClientState, action string) {
	middleware.Logger(ctx).Info("admin action", "action", action)
	h.tgLogger.LogAdminAction(state.ChatID, state.Name(), action)
	h.reply(ctx, b, state.ChatID, "✅ Done: "+action, nil)
}
