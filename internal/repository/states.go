package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// ClientStates persists the per-chat identity and preferences that a
// browser client would keep in local storage.
type ClientStates struct {
	db DBTX
}

func NewClientStates(db DBTX) *ClientStates {
	return &ClientStates{db: db}
}

const getClientState = `
SELECT chat_id, token, user_id, display_name, email, role, is_guest,
       guest_name, last_session_id, theme, updated_at
FROM client_states
WHERE chat_id = $1`

func (r *ClientStates) Get(ctx context.Context, chatID int64) (*domain.ClientState, error) {
	var s domain.ClientState
	var updatedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx, getClientState, chatID).Scan(
		&s.ChatID, &s.Token, &s.UserID, &s.DisplayName, &s.Email, &s.Role,
		&s.IsGuest, &s.GuestName, &s.LastSessionID, &s.Theme, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("get client state: %w", err)
	}
	s.UpdatedAt = pgTimestamptzToTime(updatedAt)
	return &s, nil
}

// GetOrDefault returns a fresh, unsaved state for chats never seen before.
func (r *ClientStates) GetOrDefault(ctx context.Context, chatID int64) (*domain.ClientState, error) {
	s, err := r.Get(ctx, chatID)
	if errors.Is(err, domain.ErrStateNotFound) {
		return &domain.ClientState{ChatID: chatID, Theme: config.DefaultTheme}, nil
	}
	return s, err
}

const saveClientState = `
INSERT INTO client_states (chat_id, token, user_id, display_name, email, role,
                           is_guest, guest_name, last_session_id, theme, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (chat_id) DO UPDATE SET
    token = EXCLUDED.token,
    user_id = EXCLUDED.user_id,
    display_name = EXCLUDED.display_name,
    email = EXCLUDED.email,
    role = EXCLUDED.role,
    is_guest = EXCLUDED.is_guest,
    guest_name = EXCLUDED.guest_name,
    last_session_id = EXCLUDED.last_session_id,
    theme = EXCLUDED.theme,
    updated_at = now()`

func (r *ClientStates) Save(ctx context.Context, s *domain.ClientState) error {
	theme := s.Theme
	if theme == "" {
		theme = config.DefaultTheme
	}
	_, err := r.db.Exec(ctx, saveClientState,
		s.ChatID, s.Token, s.UserID, s.DisplayName, s.Email, s.Role,
		s.IsGuest, s.GuestName, s.LastSessionID, theme,
	)
	if err != nil {
		return fmt.Errorf("save client state: %w", err)
	}
	return nil
}

const setLastSession = `
UPDATE client_states SET last_session_id = $2, updated_at = now() WHERE chat_id = $1`

func (r *ClientStates) SetLastSession(ctx context.Context, chatID int64, sessionID string) error {
	if _, err := r.db.Exec(ctx, setLastSession, chatID, sessionID); err != nil {
		return fmt.Errorf("set last session: %w", err)
	}
	return nil
}

const clearIdentity = `
UPDATE client_states
SET token = '', user_id = '', display_name = '', email = '', role = '',
    is_guest = FALSE, guest_name = '', last_session_id = '', updated_at = now()
WHERE chat_id = $1`

// ClearIdentity is logout: credentials go, the theme stays.
func (r *ClientStates) ClearIdentity(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, clearIdentity, chatID); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	return nil
}
