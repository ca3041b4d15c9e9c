package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/set-night/mindchat/internal/domain"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages  []ChatMessage `json:"messages"`
	SessionID string        `json:"sessionId"`
	UserID    string        `json:"userId"`
}

// Exchange is one persisted question/answer pair.
type Exchange struct {
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the per-user history payload. The backend answers with either
// pre-grouped sessions or flat dialog records.
type History struct {
	Grouped []domain.ChatSession
	Dialog  []domain.DialogRecord
}

// Complete returns the raw answer text, which may be empty.
func (c *Client) Complete(ctx context.Context, token string, in CompletionRequest) (string, error) {
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", token, in, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return resp.Answer, nil
}

func (c *Client) SaveExchange(ctx context.Context, token string, ex Exchange) error {
	if err := c.do(ctx, http.MethodPost, "/api/chat/save", token, ex, nil); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

func (c *Client) RenameSession(ctx context.Context, token, sessionID, title string) error {
	body := map[string]string{"tajuk": title}
	path := "/api/chat/session/" + url.PathEscape(sessionID) + "/rename"
	if err := c.do(ctx, http.MethodPut, path, token, body, nil); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// DeleteSession soft-deletes: the server keeps the rows with enabled=false.
func (c *Client) DeleteSession(ctx context.Context, token, sessionID string) error {
	body := map[string]bool{"enabled": false}
	path := "/api/chat/session/" + url.PathEscape(sessionID) + "/delete"
	if err := c.do(ctx, http.MethodPut, path, token, body, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (c *Client) FetchHistory(ctx context.Context, token, userID string) (*History, error) {
	var raw object
	path := "/api/chat/history/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if data := raw.object("data"); data != nil && !raw.has("dialog") && !raw.has("chatHistory") {
		raw = data
	}

	h := &History{}
	if raw.has("dialog") {
		h.Dialog = decodeDialog(raw.objects("dialog"))
	}
	if raw.has("chatHistory") {
		h.Grouped = decodeGrouped(raw.objects("chatHistory"))
	}
	return h, nil
}

// decodeDialog validates flat records. Records with neither a question nor
// an answer carry nothing to show and are dropped here; records without ids
// are left for the reconciler to skip.
func decodeDialog(list []object) []domain.DialogRecord {
	records := make([]domain.DialogRecord, 0, len(list))
	for i, o := range list {
		rec := domain.DialogRecord{
			SessionID: o.str("sessionId", "session_id"),
			RecordID:  o.str("_id", "id", "recordId", "record_id"),
			Question:  o.str("question", "pertanyaan"),
			Answer:    o.str("answer", "jawaban"),
			Title:     o.str("tajuk", "title"),
			CreatedAt: o.time("createdAt", "created_at", "timestamp"),
			UpdatedAt: o.time("updatedAt", "updated_at", "timestamp"),
		}
		if enabled, ok := o.boolean("enabled"); ok && !enabled {
			continue
		}
		if rec.Question == "" && rec.Answer == "" {
			slog.Warn("dropping empty dialog record", "index", i, "session_id", rec.SessionID)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func decodeGrouped(list []object) []domain.ChatSession {
	sessions := make([]domain.ChatSession, 0, len(list))
	for i, o := range list {
		id := o.str("sessionId", "session_id", "_id", "id")
		if id == "" {
			slog.Warn("dropping grouped session without id", "index", i)
			continue
		}
		if enabled, ok := o.boolean("enabled"); ok && !enabled {
			continue
		}
		sess := domain.ChatSession{
			SessionID:     id,
			DisplayID:     id,
			Title:         o.str("tajuk", "title"),
			CreatedAt:     o.time("createdAt", "created_at"),
			LastUpdatedAt: o.time("lastUpdatedAt", "updatedAt", "updated_at"),
		}
		for j, m := range o.objects("messages") {
			msg := domain.Message{
				ID:        m.str("_id", "id"),
				Text:      m.str("text", "content", "message"),
				Sender:    senderOf(m),
				Timestamp: m.time("timestamp", "createdAt", "created_at"),
				SessionID: id,
			}
			if msg.ID == "" {
				msg.ID = fmt.Sprintf("%s-m-%d", id, j)
			}
			sess.Messages = append(sess.Messages, msg)
		}
		sessions = append(sessions, sess)
	}
	return sessions
}

func senderOf(m object) domain.Sender {
	if fromUser, ok := m.boolean("isFromUser", "fromUser", "isUser"); ok {
		if fromUser {
			return domain.SenderUser
		}
		return domain.SenderBot
	}
	switch m.str("sender", "role") {
	case "user", "User":
		return domain.SenderUser
	default:
		return domain.SenderBot
	}
}

// MarshalJSON keeps the wire timestamp in RFC 3339 with milliseconds, the
// format the history endpoint returns.
func (e Exchange) MarshalJSON() ([]byte, error) {
	type alias Exchange
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{alias: alias(e), Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00")})
}
