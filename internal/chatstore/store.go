package chatstore

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/history"
)

// Store is the in-memory session list of one chat. Index 0 is the most
// recent session. Accessors return copies.
type Store struct {
	mu       sync.RWMutex
	sessions []*domain.ChatSession
	activeID string
	loaded   bool
	now      func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock is used by tests that need deterministic session ids.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// UpsertOptimistic creates a local session keyed by the current time in
// milliseconds, puts it at the head and makes it active. If that id is
// already taken the existing session is activated instead.
func (s *Store) UpsertOptimistic() domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := strconv.FormatInt(now.UnixMilli(), 10)
	if existing := s.find(id); existing != nil {
		s.activeID = id
		return existing.Clone()
	}

	sess := &domain.ChatSession{
		SessionID:     id,
		DisplayID:     "local-" + id,
		Title:         config.PlaceholderTitle,
		CreatedAt:     now,
		LastUpdatedAt: now,
		Optimistic:    true,
	}
	s.sessions = append([]*domain.ChatSession{sess}, s.sessions...)
	s.activeID = id
	return sess.Clone()
}

// AppendMessage adds msg to the session. The first user message of a
// session with a placeholder title also names it.
func (s *Store) AppendMessage(sessionID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(sessionID)
	if sess == nil {
		slog.Error("append to unknown session", "session_id", sessionID, "message_id", msg.ID)
		return fmt.Errorf("append message: %w", domain.ErrSessionNotFound)
	}

	msg.SessionID = sessionID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sess.Messages = append(sess.Messages, msg)
	if msg.Timestamp.After(sess.LastUpdatedAt) {
		sess.LastUpdatedAt = msg.Timestamp
	}

	if len(sess.Messages) == 1 && msg.IsFromUser() && history.IsPlaceholder(sess.Title) {
		sess.Title = history.TitleFrom(msg.Text)
	}
	return nil
}

func (s *Store) Rename(sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(sessionID)
	if sess == nil {
		return fmt.Errorf("rename session: %w", domain.ErrSessionNotFound)
	}
	sess.Title = title
	return nil
}

// Remove drops the session. Removing the active session clears the active
// pointer so no view keeps showing it.
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.sessions, func(c *domain.ChatSession) bool {
		return c.SessionID == sessionID
	})
	if idx < 0 {
		return false
	}
	s.sessions = slices.Delete(s.sessions, idx, idx+1)
	if s.activeID == sessionID {
		s.activeID = ""
	}
	return true
}

// ReplaceAll installs a reconciled list, keeping optimistic sessions the
// server does not know yet. The active pointer survives only if its session
// is still present.
func (s *Store) ReplaceAll(sessions []domain.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := make([]domain.ChatSession, len(s.sessions))
	for i, c := range s.sessions {
		local[i] = *c
	}
	merged := history.Merge(sessions, local)

	s.sessions = make([]*domain.ChatSession, len(merged))
	for i := range merged {
		c := merged[i].Clone()
		s.sessions[i] = &c
	}
	if s.activeID != "" && s.find(s.activeID) == nil {
		s.activeID = ""
	}
	s.loaded = true
}

// Loaded reports whether server history was installed since the last Reset.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// MarkPersisted records that the server acknowledged the session.
func (s *Store) MarkPersisted(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.find(sessionID); sess != nil {
		sess.Optimistic = false
	}
}

func (s *Store) SetActive(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(sessionID) == nil {
		return fmt.Errorf("activate session: %w", domain.ErrSessionNotFound)
	}
	s.activeID = sessionID
	return nil
}

// ClearActive starts a fresh conversation on the next message.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

func (s *Store) Active() (domain.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return domain.ChatSession{}, false
	}
	sess := s.find(s.activeID)
	if sess == nil {
		return domain.ChatSession{}, false
	}
	return sess.Clone(), true
}

// ActiveMessages is the message view; empty when nothing is active.
func (s *Store) ActiveMessages() []domain.Message {
	sess, ok := s.Active()
	if !ok {
		return nil
	}
	return sess.Messages
}

func (s *Store) Get(sessionID string) (domain.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.find(sessionID)
	if sess == nil {
		return domain.ChatSession{}, false
	}
	return sess.Clone(), true
}

func (s *Store) Sessions() []domain.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatSession, len(s.sessions))
	for i, c := range s.sessions {
		out[i] = c.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reset forgets everything, as on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	s.activeID = ""
	s.loaded = false
}

func (s *Store) find(id string) *domain.ChatSession {
	for _, c := range s.sessions {
		if c.SessionID == id {
			return c
		}
	}
	return nil
}
