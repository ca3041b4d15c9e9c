package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/set-night/mindchat/internal/chatstore"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/history"
)

// HistoryService keeps a chat's session store in step with the backend.
type HistoryService struct {
	backend HistoryBackend
	states  StateStore
	chats   *chatstore.Registry
}

func NewHistoryService(b HistoryBackend, states StateStore, chats *chatstore.Registry) *HistoryService {
	return &HistoryService{backend: b, states: states, chats: chats}
}

// Store returns the chat's session store.
func (s *HistoryService) Store(chatID int64) *chatstore.Store {
	return s.chats.For(chatID)
}

// Load refreshes the chat's sessions from the backend and returns them most
// recent first. Guests only ever see their in-memory sessions.
func (s *HistoryService) Load(ctx context.Context, state *domain.ClientState) ([]domain.ChatSession, error) {
	store := s.chats.For(state.ChatID)
	if !state.IsAuthenticated() {
		return store.Sessions(), nil
	}

	h, err := s.backend.FetchHistory(ctx, state.Token, state.UserID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	store.ReplaceAll(history.Build(h.Grouped, h.Dialog))

	if store.ActiveID() == "" && state.LastSessionID != "" {
		if err := store.SetActive(state.LastSessionID); err != nil {
			slog.Debug("last session no longer exists", "chat_id", state.ChatID, "session_id", state.LastSessionID)
		}
	}
	return store.Sessions(), nil
}

// Switch makes sessionID the active conversation and remembers it.
func (s *HistoryService) Switch(ctx context.Context, state *domain.ClientState, sessionID string) (domain.ChatSession, error) {
	store := s.chats.For(state.ChatID)
	if err := store.SetActive(sessionID); err != nil {
		return domain.ChatSession{}, err
	}
	sess, _ := store.Active()
	s.Remember(ctx, state, sessionID)
	return sess, nil
}

// New clears the active pointer; the next message opens a fresh session.
func (s *HistoryService) New(ctx context.Context, state *domain.ClientState) {
	s.chats.For(state.ChatID).ClearActive()
	s.Remember(ctx, state, "")
}

// Delete drops the session locally first, then soft-deletes it on the
// backend. The local removal is not rolled back on failure.
func (s *HistoryService) Delete(ctx context.Context, state *domain.ClientState, sessionID string) error {
	store := s.chats.For(state.ChatID)
	sess, ok := store.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}

	store.Remove(sessionID)
	if state.LastSessionID == sessionID {
		s.Remember(ctx, state, "")
	}

	if !state.IsAuthenticated() || sess.Optimistic {
		return nil
	}
	if err := s.backend.DeleteSession(ctx, state.Token, sessionID); err != nil {
		slog.Error("delete session on backend", "error", err, "chat_id", state.ChatID, "session_id", sessionID)
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Rename sets a custom title, truncated like generated ones.
func (s *HistoryService) Rename(ctx context.Context, state *domain.ClientState, sessionID, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &domain.ValidationError{Field: "title", Reason: "is required"}
	}
	title = history.TitleFrom(title)

	store := s.chats.For(state.ChatID)
	sess, ok := store.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	if err := store.Rename(sessionID, title); err != nil {
		return "", err
	}

	if !state.IsAuthenticated() || sess.Optimistic {
		return title, nil
	}
	if err := s.backend.RenameSession(ctx, state.Token, sessionID, title); err != nil {
		return "", fmt.Errorf("rename session: %w", err)
	}
	return title, nil
}

// Remember stores the session to reopen after a restart.
func (s *HistoryService) Remember(ctx context.Context, state *domain.ClientState, sessionID string) {
	if state.LastSessionID == sessionID {
		return
	}
	state.LastSessionID = sessionID
	if !state.HasIdentity() {
		return
	}
	if err := s.states.SetLastSession(ctx, state.ChatID, sessionID); err != nil {
		slog.Error("save last session", "error", err, "chat_id", state.ChatID)
	}
}
