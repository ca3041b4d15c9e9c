package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/chatstore"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

type AuthService struct {
	backend AuthBackend
	states  StateStore
	chats   *chatstore.Registry
}

func NewAuthService(b AuthBackend, states StateStore, chats *chatstore.Registry) *AuthService {
	return &AuthService{backend: b, states: states, chats: chats}
}

// Login validates the credentials locally, exchanges them for a token and
// stores the resulting identity on state.
func (s *AuthService) Login(ctx context.Context, state *domain.ClientState, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return &domain.ValidationError{Field: "password", Reason: "is required"}
	}

	sess, err := s.backend.Login(ctx, backend.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.signIn(ctx, state, sess)
}

// Register creates the account and signs in. Backends that do not return a
// token on registration get a follow-up login.
func (s *AuthService) Register(ctx context.Context, state *domain.ClientState, name, email, password, confirm string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}

	sess, err := s.backend.Register(ctx, backend.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	if sess.Token == "" {
		sess, err = s.backend.Login(ctx, backend.LoginRequest{Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("login after register: %w", err)
		}
	}
	if sess.Profile.Name == "" {
		sess.Profile.Name = name
	}
	return s.signIn(ctx, state, sess)
}

// EnterGuest starts guest mode. Guest conversations live only in memory.
func (s *AuthService) EnterGuest(ctx context.Context, state *domain.ClientState, name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}

	state.ClearIdentity()
	state.IsGuest = true
	state.GuestName = name
	s.chats.Drop(state.ChatID)

	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save guest state: %w", err)
	}
	return nil
}

// Logout forgets credentials and every conversation held for the chat.
func (s *AuthService) Logout(ctx context.Context, state *domain.ClientState) error {
	state.ClearIdentity()
	s.chats.Drop(state.ChatID)
	if err := s.states.ClearIdentity(ctx, state.ChatID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Verify checks the stored token before a protected operation. An expired
// token logs the chat out and returns domain.ErrUnauthorized.
func (s *AuthService) Verify(ctx context.Context, state *domain.ClientState) error {
	if !state.IsAuthenticated() {
		return domain.ErrNotLoggedIn
	}

	profile, err := s.backend.Verify(ctx, state.Token)
	if err != nil {
		if backend.IsUnauthorized(err) {
			slog.Info("token expired, logging out", "chat_id", state.ChatID, "user_id", state.UserID)
			if lerr := s.Logout(ctx, state); lerr != nil {
				slog.Error("logout after expired token", "error", lerr, "chat_id", state.ChatID)
			}
			return domain.ErrUnauthorized
		}
		return fmt.Errorf("verify token: %w", err)
	}

	if profile != nil && profile.ID != "" && (profile.Role != state.Role || profile.Name != state.DisplayName) {
		state.Role = profile.Role
		if profile.Name != "" {
			state.DisplayName = profile.Name
		}
		if err := s.states.Save(ctx, state); err != nil {
			slog.Error("save verified profile", "error", err, "chat_id", state.ChatID)
		}
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, state *domain.ClientState, current, next, confirm string) error {
	if !state.IsAuthenticated() {
		return domain.ErrNotLoggedIn
	}
	if current == "" {
		return &domain.ValidationError{Field: "current password", Reason: "is required"}
	}
	if err := validateNewPassword(next, confirm); err != nil {
		return err
	}
	if current == next {
		return &domain.ValidationError{Field: "new password", Reason: "must differ from the current one"}
	}
	return s.backend.ChangePassword(ctx, state.Token, backend.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	return s.backend.ForgotPassword(ctx, email)
}

// Rename changes the display name. Guests rename locally.
// Refresh pulls the stored profile from the backend so /profile shows the
// current name and email.
func (s *AuthService) Refresh(ctx context.Context, state *domain.ClientState) error {
	if !state.IsAuthenticated() {
		return nil
	}
	profile, err := s.backend.Profile(ctx, state.Token)
	if err != nil {
		return err
	}
	if profile == nil || (profile.Name == state.DisplayName && profile.Email == state.Email) {
		return nil
	}
	if profile.Name != "" {
		state.DisplayName = profile.Name
	}
	if profile.Email != "" {
		state.Email = profile.Email
	}
	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *AuthService) Rename(ctx context.Context, state *domain.ClientState, name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}

	switch {
	case state.IsGuest:
		state.GuestName = name
	case state.IsAuthenticated():
		profile, err := s.backend.UpdateProfile(ctx, state.Token, backend.UpdateProfileRequest{Name: name})
		if err != nil {
			return err
		}
		state.DisplayName = name
		if profile != nil && profile.Name != "" {
			state.DisplayName = profile.Name
		}
	default:
		return domain.ErrNotLoggedIn
	}

	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *AuthService) signIn(ctx context.Context, state *domain.ClientState, sess *backend.Session) error {
	if sess == nil || sess.Token == "" || sess.Profile.ID == "" {
		return errors.New("login: backend returned no session")
	}

	s.chats.Drop(state.ChatID)
	state.ClearIdentity()
	state.Token = sess.Token
	state.UserID = sess.Profile.ID
	state.DisplayName = sess.Profile.Name
	state.Email = sess.Profile.Email
	state.Role = sess.Profile.Role

	if err := s.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if utf8.RuneCountInString(name) > config.MaxNameLen {
		return &domain.ValidationError{Field: "name", Reason: fmt.Sprintf("must be at most %d characters", config.MaxNameLen)}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return &domain.ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < config.MinPasswordLen {
		return &domain.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", config.MinPasswordLen)}
	}
	if password != confirm {
		return &domain.ValidationError{Field: "password", Reason: "confirmation does not match"}
	}
	return nil
}
