package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleBreathe(ctx context.Context, b *bot.Bot, update *models.Update) {
	state := middleware.GetState(ctx)
	if state == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) == 0 {
		h.showPatterns(ctx, b, chatID, state)
		return
	}
	if strings.EqualFold(fields[0], "stop") {
		if !h.stopBreathing(chatID) {
			h.reply(ctx, b, chatID, "No exercise is running.", nil)
		}
		return
	}

	pattern, err := h.breathing.Get(fields[0])
	if err != nil {
		h.fail(ctx, b, chatID, "breathing pattern", err)
		return
	}
	cycles := config.DefaultBreathingCycles
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			h.fail(ctx, b, chatID, "breathing cycles", &domain.ValidationError{Field: "cycles", Reason: "must be a positive number"})
			return
		}
		cycles = n
	}
	h.runBreathing(ctx, b, chatID, state, pattern, cycles)
}

func (h *Handler) showPatterns(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState) {
	var sb strings.Builder
	sb.WriteString(icon(state, "🌬") + "Pick a breathing exercise\n")
	var rows [][]models.InlineKeyboardButton
	for _, p := range h.breathing.List() {
		fmt.Fprintf(&sb, "\n%s: %s", p.Name, p.Description)
		rows = append(rows, tg.ButtonRow(tg.InlineButton(p.Name, "breathe_"+p.Key)))
	}
	h.reply(ctx, b, chatID, sb.String(), tg.InlineKeyboard(rows...))
}

func (h *Handler) handleBreathePick(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	state := middleware.GetState(ctx)
	chatID, _ := callbackChat(update)
	if state == nil || chatID == 0 {
		return
	}
	pattern, err := h.breathing.Get(strings.TrimPrefix(update.CallbackQuery.Data, "breathe_"))
	if err != nil {
		h.fail(ctx, b, chatID, "breathing pattern", err)
		return
	}
	h.runBreathing(ctx, b, chatID, state, pattern, config.DefaultBreathingCycles)
}

// runBreathing guides one exercise by editing a single message at every
// phase change. One exercise runs per chat.
func (h *Handler) runBreathing(ctx context.Context, b *bot.Bot, chatID int64, state *domain.ClientState, p service.BreathingPattern, cycles int) {
	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	ex := &exercise{cancel: cancel}
	if _, running := h.exercises.LoadOrStore(chatID, ex); running {
		cancel()
		h.reply(parent, b, chatID, "An exercise is already running. /breathe stop ends it.", nil)
		return
	}
	defer func() {
		h.exercises.CompareAndDelete(chatID, ex)
		cancel()
	}()

	steps := h.breathing.Schedule(p, cycles)
	total := steps[len(steps)-1].Cycle

	msg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("%s%s\nGet comfortable. We start in a moment.", icon(state, "🌬"), p.Name),
	})
	if err != nil {
		middleware.Logger(ctx).Error("start breathing exercise", "error", err)
		return
	}

	timer := time.NewTimer(3 * time.Second)
	defer timer.Stop()
	for _, step := range steps {
		select {
		case <-ctx.Done():
			tg.EditText(parent, b, chatID, msg.ID, icon(state, "🌙")+"Exercise stopped. Come back any time.", nil)
			return
		case <-timer.C:
		}
		text := fmt.Sprintf("%s\nRound %d of %d\n\n%s%s (%ds)",
			p.Name, step.Cycle, total, icon(state, "🌬"), step.Phase, int(step.Duration.Seconds()))
		if err := tg.EditText(ctx, b, chatID, msg.ID, text, nil); err != nil {
			middleware.Logger(ctx).Debug("edit breathing step", "error", err)
		}
		timer.Reset(step.Duration)
	}

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	tg.EditText(ctx, b, chatID, msg.ID, icon(state, "✨")+"Well done. Notice how you feel right now.", nil)
}

// stopBreathing cancels the chat's running exercise, if any.
func (h *Handler) stopBreathing(chatID int64) bool {
	v, ok := h.exercises.LoadAndDelete(chatID)
	if !ok {
		return false
	}
	v.(*exercise).cancel()
	return true
}

type exercise struct {
	cancel context.CancelFunc
}
