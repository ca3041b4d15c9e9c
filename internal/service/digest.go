package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// SendFunc delivers a text message to a chat.
type SendFunc func(ctx context.Context, chatID int64, text string) error

// DigestService broadcasts a daily quote to subscribed chats.
type DigestService struct {
	subs    SubscriptionStore
	content *ContentService
	send    SendFunc
	cron    *cron.Cron
	timeout time.Duration
}

func NewDigestService(subs SubscriptionStore, content *ContentService, send SendFunc) *DigestService {
	return &DigestService{
		subs:    subs,
		content: content,
		send:    send,
		timeout: 5 * time.Minute,
	}
}

// ValidateSchedule reports whether expr is a usable 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("parse digest schedule %q: %w", expr, err)
	}
	return nil
}

// Start schedules the broadcast. Stop must be called on shutdown.
func (s *DigestService) Start(expr string) error {
	if err := ValidateSchedule(expr); err != nil {
		return err
	}
	s.cron = cron.New(cron.WithParser(cronParser))
	if _, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		sent, err := s.Broadcast(ctx)
		if err != nil {
			slog.Error("daily quote broadcast", "error", err, "sent", sent)
			return
		}
		slog.Info("daily quote broadcast", "sent", sent)
	}); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	s.cron.Start()
	slog.Info("daily quote digest scheduled", "cron", expr)
	return nil
}

func (s *DigestService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Broadcast sends one quote to every subscriber and returns how many
// deliveries succeeded. Failed deliveries are logged and skipped.
func (s *DigestService) Broadcast(ctx context.Context) (int, error) {
	ids, err := s.subs.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	quote, err := s.content.RandomQuote(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("pick daily quote: %w", err)
	}
	text := "🌅 Quote of the day\n\n" + FormatQuote(quote.Text, quote.Author)

	sent := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.send(ctx, id, text); err != nil {
			slog.Warn("deliver daily quote", "error", err, "chat_id", id)
			continue
		}
		sent++
	}
	return sent, nil
}

// Toggle flips the chat's subscription and reports the new state.
func (s *DigestService) Toggle(ctx context.Context, chatID int64) (bool, error) {
	on, err := s.subs.IsSubscribed(ctx, chatID)
	if err != nil {
		return false, err
	}
	if on {
		return false, s.subs.Unsubscribe(ctx, chatID)
	}
	return true, s.subs.Subscribe(ctx, chatID)
}

// FormatQuote renders a quote with its author on its own line.
func FormatQuote(text, author string) string {
	if author == "" {
		return "“" + text + "”"
	}
	return "“" + text + "”\n— " + author
}
