package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/chatstore"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/history"
)

// Backend is the part of the REST client the dispatcher needs.
type Backend interface {
	Complete(ctx context.Context, token string, in backend.CompletionRequest) (string, error)
	SaveExchange(ctx context.Context, token string, ex backend.Exchange) error
	RenameSession(ctx context.Context, token, sessionID, title string) error
	FetchHistory(ctx context.Context, token, userID string) (*backend.History, error)
}

// TypingFunc shows a typing indicator until the returned func is called.
type TypingFunc func(ctx context.Context) context.CancelFunc

type Options struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

type Dispatcher struct {
	backend Backend
	opts    Options
	lanes   *lanes
	now     func() time.Time
}

func New(b Backend, opts Options) *Dispatcher {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Dispatcher{
		backend: b,
		opts:    opts,
		lanes:   newLanes(),
		now:     time.Now,
	}
}

type Request struct {
	ChatID int64
	State  domain.ClientState
	Store  *chatstore.Store
	Text   string
	Typing TypingFunc
}

type Result struct {
	SessionID   string
	Created     bool
	UserMessage domain.Message
	Reply       domain.Message

	// Failed is set when the completion call failed and Reply holds the
	// apology text. Err keeps the cause for logging.
	Failed bool
	Err    error

	Renamed bool
}

// Busy reports whether a message of this chat is in flight.
func (d *Dispatcher) Busy(chatID int64) bool {
	return d.lanes.busy(chatID)
}

// Send delivers one user message and integrates the reply. The returned
// error is set only when nothing could be done (cancelled while queued, or
// the store lost the session); backend failures end up in Result.
func (d *Dispatcher) Send(ctx context.Context, req Request) (*Result, error) {
	release, err := d.lanes.acquire(ctx, req.ChatID)
	if err != nil {
		return nil, fmt.Errorf("wait for previous message: %w", err)
	}
	defer release()

	log := slog.With("chat_id", req.ChatID, "user_id", req.State.UserID, "guest", req.State.IsGuest)
	store := req.Store
	res := &Result{}

	sess, ok := store.Active()
	if !ok {
		sess = store.UpsertOptimistic()
		res.Created = true
		log.Info("created optimistic session", "session_id", sess.SessionID)
	}
	res.SessionID = sess.SessionID

	res.UserMessage = domain.Message{
		ID:        uuid.NewString(),
		Text:      req.Text,
		Sender:    domain.SenderUser,
		Timestamp: d.now(),
	}
	if err := store.AppendMessage(sess.SessionID, res.UserMessage); err != nil {
		return nil, err
	}
	res.UserMessage.SessionID = sess.SessionID

	current, ok := store.Get(sess.SessionID)
	if !ok {
		return nil, fmt.Errorf("reload session: %w", domain.ErrSessionNotFound)
	}
	if history.IsPlaceholder(current.Title) {
		current.Title = history.TitleFrom(req.Text)
		if err := store.Rename(sess.SessionID, current.Title); err != nil {
			return nil, err
		}
	}

	completion := backend.CompletionRequest{
		Messages:  Transcript(current.Messages),
		SessionID: sess.SessionID,
		UserID:    completionUserID(req),
	}

	stop := context.CancelFunc(func() {})
	if req.Typing != nil {
		stop = req.Typing(ctx)
	}
	answer, err := d.complete(ctx, req.State.Token, completion)
	stop()

	if err != nil {
		log.Error("chat completion failed", "session_id", sess.SessionID, "error", err)
		res.Failed = true
		res.Err = err
		res.Reply = d.botMessage(config.ApologyAnswer)
		if appendErr := store.AppendMessage(sess.SessionID, res.Reply); appendErr != nil {
			return nil, appendErr
		}
		res.Reply.SessionID = sess.SessionID
		return res, nil
	}

	if strings.TrimSpace(answer) == "" {
		answer = config.FallbackAnswer
	}
	res.Reply = d.botMessage(answer)
	if err := store.AppendMessage(sess.SessionID, res.Reply); err != nil {
		return nil, err
	}
	res.Reply.SessionID = sess.SessionID

	if req.State.IsAuthenticated() && !req.State.IsGuest {
		res.Renamed = d.persist(ctx, log, req, sess.SessionID, res)
	}
	return res, nil
}

// persist writes the exchange through and names a fresh session on the
// server. Failures are logged only; local state already shows the reply.
func (d *Dispatcher) persist(ctx context.Context, log *slog.Logger, req Request, sessionID string, res *Result) bool {
	store := req.Store
	token := req.State.Token

	err := d.backend.SaveExchange(ctx, token, backend.Exchange{
		UserID:    req.State.UserID,
		SessionID: sessionID,
		Question:  res.UserMessage.Text,
		Answer:    res.Reply.Text,
		Timestamp: res.Reply.Timestamp,
	})
	if err != nil {
		log.Warn("save chat failed", "session_id", sessionID, "error", err)
		return false
	}
	store.MarkPersisted(sessionID)

	current, ok := store.Get(sessionID)
	if !ok || current.UserMessageCount() != 1 {
		return false
	}
	first := current.FirstUserMessage()
	if first == nil || !history.LooksGenerated(current.Title, first.Text) {
		return false
	}

	title := history.TitleFrom(first.Text)
	if err := d.backend.RenameSession(ctx, token, sessionID, title); err != nil {
		log.Warn("rename session failed", "session_id", sessionID, "error", err)
		return false
	}

	h, err := d.backend.FetchHistory(ctx, token, req.State.UserID)
	if err != nil {
		log.Warn("refresh history after rename failed", "error", err)
		return true
	}
	store.ReplaceAll(history.Build(h.Grouped, h.Dialog))
	return true
}

// complete applies the per-attempt timeout and retries transient failures.
func (d *Dispatcher) complete(ctx context.Context, token string, in backend.CompletionRequest) (string, error) {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		answer, err := d.backend.Complete(callCtx, token, in)
		cancel()
		if err == nil {
			return answer, nil
		}
		if attempt >= d.opts.Attempts || ctx.Err() != nil || !backend.IsTransient(err) {
			return "", err
		}

		slog.Warn("retrying chat completion", "attempt", attempt, "session_id", in.SessionID, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d.opts.Backoff * time.Duration(attempt)):
		}
	}
}

func (d *Dispatcher) botMessage(text string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    domain.SenderBot,
		Timestamp: d.now(),
	}
}

// Transcript maps session messages to role-tagged turns behind the fixed
// system instruction.
func Transcript(msgs []domain.Message) []backend.ChatMessage {
	out := make([]backend.ChatMessage, 0, len(msgs)+1)
	out = append(out, backend.ChatMessage{Role: "system", Content: config.SystemInstruction})
	for _, m := range msgs {
		role := "assistant"
		if m.IsFromUser() {
			role = "user"
		}
		out = append(out, backend.ChatMessage{Role: role, Content: m.Text})
	}
	return out
}

func completionUserID(req Request) string {
	if req.State.IsGuest || req.State.UserID == "" {
		return fmt.Sprintf("guest-%d", req.ChatID)
	}
	return req.State.UserID
}
