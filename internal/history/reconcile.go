package history

import (
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// Reconcile turns flat dialog records into chat sessions, newest first.
// It never fails: records without any id are skipped and logged.
func Reconcile(records []domain.DialogRecord) []domain.ChatSession {
	var order []string
	groups := make(map[string]*domain.ChatSession)

	for i := range records {
		rec := &records[i]
		key := rec.GroupKey()
		if key == "" {
			slog.Warn("skipping dialog record without session or record id", "index", i)
			continue
		}

		sess, ok := groups[key]
		if !ok {
			sess = &domain.ChatSession{
				SessionID:     key,
				DisplayID:     key,
				Title:         initialTitle(rec),
				CreatedAt:     orEpoch(rec.CreatedAt),
				LastUpdatedAt: domain.Epoch,
			}
			groups[key] = sess
			order = append(order, key)
		}

		if rec.Question != "" {
			sess.Messages = append(sess.Messages, domain.Message{
				ID:        messageID(rec, key, "q", len(sess.Messages)),
				Text:      rec.Question,
				Sender:    domain.SenderUser,
				Timestamp: orEpoch(rec.CreatedAt),
				SessionID: key,
			})
		}
		if rec.Answer != "" {
			sess.Messages = append(sess.Messages, domain.Message{
				ID:        messageID(rec, key, "a", len(sess.Messages)),
				Text:      rec.Answer,
				Sender:    domain.SenderBot,
				Timestamp: orEpoch(rec.UpdatedAt),
				SessionID: key,
			})
		}

		if updated := orEpoch(rec.UpdatedAt); updated.After(sess.LastUpdatedAt) {
			sess.LastUpdatedAt = updated
		}
	}

	sessions := make([]domain.ChatSession, 0, len(order))
	for _, key := range order {
		sessions = append(sessions, *groups[key])
	}
	return Normalize(sessions)
}

// Normalize fixes placeholder titles, sorts each session's messages
// ascending and the sessions by recency. Pre-grouped history payloads go
// through it too.
func Normalize(sessions []domain.ChatSession) []domain.ChatSession {
	for i := range sessions {
		s := &sessions[i]
		if IsPlaceholder(s.Title) {
			if first := s.FirstUserMessage(); first != nil {
				s.Title = TitleFrom(first.Text)
			} else {
				s.Title = config.PlaceholderTitle
			}
		}
		if s.DisplayID == "" {
			s.DisplayID = s.SessionID
		}
		if s.LastUpdatedAt.IsZero() {
			s.LastUpdatedAt = domain.Epoch
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = domain.Epoch
		}
		for j := range s.Messages {
			if s.Messages[j].Timestamp.IsZero() {
				s.Messages[j].Timestamp = domain.Epoch
			}
		}
		slices.SortStableFunc(s.Messages, func(a, b domain.Message) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	}

	slices.SortStableFunc(sessions, func(a, b domain.ChatSession) int {
		return b.LastUpdatedAt.Compare(a.LastUpdatedAt)
	})
	return sessions
}

func initialTitle(rec *domain.DialogRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	if rec.Question != "" {
		return TitleFrom(rec.Question)
	}
	return config.PlaceholderTitle
}

// messageID stays unique within a session because n is the message's
// position at append time.
func messageID(rec *domain.DialogRecord, key, kind string, n int) string {
	base := rec.RecordID
	if base == "" {
		base = key
	}
	return base + "-" + kind + "-" + strconv.Itoa(n)
}

func orEpoch(t time.Time) time.Time {
	if t.IsZero() {
		return domain.Epoch
	}
	return t
}
