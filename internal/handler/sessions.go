package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/history"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

const (
	transcriptTail    = 10
	transcriptSnippet = 600
)

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startNew(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) startNew(ctx context.Context, b *bot.Bot, chatID int64) {
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		return
	}
	h.history.New(ctx, state)
	h.reply(ctx, b, chatID, icon(state, "🌱")+"New conversation. Write whatever is on your mind.", nil)
}

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.showHistory(ctx, b, update.Message.Chat.ID)
}

func (h *Handler) showHistory(ctx context.Context, b *bot.Bot, chatID int64) {
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		return
	}
	sessions, err := h.history.Load(ctx, state)
	if err != nil {
		h.fail(ctx, b, chatID, "load history", err)
		return
	}
	text, markup := renderHistoryPage(state, sessions, h.history.Store(chatID).ActiveID(), 0, time.Now())
	h.reply(ctx, b, chatID, text, markup)
}

func (h *Handler) handleHistoryPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	state := middleware.GetState(ctx)
	chatID, messageID := callbackChat(update)
	if state == nil || chatID == 0 {
		return
	}
	page, _ := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "hist_page_"))
	h.editHistory(ctx, b, state, messageID, page)
}

func (h *Handler) editHistory(ctx context.Context, b *bot.Bot, state *domain.ClientState, messageID, page int) {
	store := h.history.Store(state.ChatID)
	text, markup := renderHistoryPage(state, store.Sessions(), store.ActiveID(), page, time.Now())
	if err := tg.EditText(ctx, b, state.ChatID, messageID, text, markup); err != nil {
		middleware.Logger(ctx).Debug("edit history page", "error", err)
	}
}

func (h *Handler) handleHistoryOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	chatID, _ := callbackChat(update)
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		return
	}
	if err := h.ensureLoaded(ctx, state); err != nil {
		h.fail(ctx, b, chatID, "load history", err)
		return
	}

	sess, err := h.history.Switch(ctx, state, strings.TrimPrefix(update.CallbackQuery.Data, "hist_open_"))
	if err != nil {
		h.fail(ctx, b, chatID, "switch session", err)
		return
	}
	if err := tg.SendLongMessage(ctx, b, chatID, renderTranscript(state, sess, transcriptTail), nil); err != nil {
		middleware.Logger(ctx).Error("send transcript", "error", err)
	}
}

func (h *Handler) handleHistoryDelete(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	chatID, messageID := callbackChat(update)
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		answerCallback(ctx, b, update, "")
		return
	}

	err := h.history.Delete(ctx, state, strings.TrimPrefix(update.CallbackQuery.Data, "hist_del_"))
	if err != nil {
		answerCallback(ctx, b, update, "")
		h.fail(ctx, b, chatID, "delete session", err)
	} else {
		answerCallback(ctx, b, update, "Deleted")
	}
	h.editHistory(ctx, b, state, messageID, 0)
}

func (h *Handler) handleRename(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		return
	}
	title := commandArgs(update.Message.Text)
	if title == "" {
		h.reply(ctx, b, chatID, "Usage: /rename <new title>", nil)
		return
	}

	active := h.history.Store(chatID).ActiveID()
	if active == "" {
		h.fail(ctx, b, chatID, "rename session", domain.ErrNoActiveSession)
		return
	}
	title, err := h.history.Rename(ctx, state, active, title)
	if err != nil {
		h.fail(ctx, b, chatID, "rename session", err)
		return
	}
	h.reply(ctx, b, chatID, fmt.Sprintf("%sRenamed to “%s”.", icon(state, "✏️"), title), nil)
}

func (h *Handler) handleDelete(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	state, ok := h.requireIdentity(ctx, b, chatID)
	if !ok {
		return
	}

	active, has := h.history.Store(chatID).Active()
	if !has {
		h.fail(ctx, b, chatID, "delete session", domain.ErrNoActiveSession)
		return
	}
	if err := h.history.Delete(ctx, state, active.SessionID); err != nil {
		h.fail(ctx, b, chatID, "delete session", err)
		return
	}
	h.reply(ctx, b, chatID, fmt.Sprintf("%sDeleted “%s”. Your next message starts a new conversation.", icon(state, "🗑"), active.Title), nil)
}

// renderHistoryPage lists one page of sessions under their recency headers,
// with open and delete buttons per session.
func renderHistoryPage(state *domain.ClientState, sessions []domain.ChatSession, activeID string, page int, now time.Time) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(icon(state, "📚") + "Your conversations")
	if len(sessions) == 0 {
		sb.WriteString("\n\nNothing here yet. Just write to start one.")
		return sb.String(), nil
	}
	if state.IsGuest {
		sb.WriteString(" (guest, not saved)")
	}

	totalPages := (len(sessions) + config.SessionsPerPage - 1) / config.SessionsPerPage
	page = max(0, min(page, totalPages-1))
	start := page * config.SessionsPerPage
	end := min(start+config.SessionsPerPage, len(sessions))

	var rows [][]models.InlineKeyboardButton
	for _, group := range history.GroupByBucket(sessions[start:end], now) {
		fmt.Fprintf(&sb, "\n\n%s", group.Bucket.Label())
		for _, s := range group.Sessions {
			marker := ""
			if s.SessionID == activeID {
				marker = " ✅"
			}
			fmt.Fprintf(&sb, "\n• %s%s", s.Title, marker)
			rows = append(rows, tg.ButtonRow(
				tg.InlineButton(truncate(s.Title, 40)+marker, "hist_open_"+s.SessionID),
				tg.InlineButton("🗑", "hist_del_"+s.SessionID),
			))
		}
	}

	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, "hist_page"))
	}
	rows = append(rows, tg.ButtonRow(tg.InlineButton(icon(state, "🌱")+"New conversation", "menu_new")))
	return sb.String(), tg.InlineKeyboard(rows...)
}

// renderTranscript shows the last n messages of a session.
func renderTranscript(state *domain.ClientState, sess domain.ChatSession, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s\n", icon(state, "📖"), sess.Title)

	msgs := sess.Messages
	if len(msgs) > n {
		fmt.Fprintf(&sb, "(last %d of %d messages)\n", n, len(msgs))
		msgs = msgs[len(msgs)-n:]
	}
	for _, m := range msgs {
		who, text := "You", m.Text
		if !m.IsFromUser() {
			who, text = "Bot", tg.HTMLToText(text)
		}
		text = truncate(text, transcriptSnippet)
		fmt.Fprintf(&sb, "\n%s: %s\n", who, text)
	}
	if len(sess.Messages) == 0 {
		sb.WriteString("\nNo messages yet.")
	}
	sb.WriteString("\nThis conversation is open again. Just keep writing.")
	return sb.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
