package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/set-night/mindchat/internal/domain"
)

// Session is what a successful login or registration yields.
type Session struct {
	Token   string
	Profile domain.Profile
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c *Client) Login(ctx context.Context, in LoginRequest) (*Session, error) {
	var raw object
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", in, &raw); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return decodeSession(raw)
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*Session, error) {
	var raw object
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", in, &raw); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	// Some deployments register without logging in; the caller falls back
	// to Login when Token is empty.
	sess, err := decodeSession(raw)
	if err != nil {
		return &Session{}, nil
	}
	return sess, nil
}

// Verify checks the token and returns the account it belongs to.
func (c *Client) Verify(ctx context.Context, token string) (*domain.Profile, error) {
	var raw object
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", token, nil, &raw); err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	p := decodeProfile(userObject(raw))
	return &p, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", "", body, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

func (c *Client) ChangePassword(ctx context.Context, token string, in ChangePasswordRequest) error {
	if err := c.do(ctx, http.MethodPut, "/api/auth/change-password", token, in, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

func (c *Client) Profile(ctx context.Context, token string) (*domain.Profile, error) {
	var raw object
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", token, nil, &raw); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p := decodeProfile(userObject(raw))
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, in UpdateProfileRequest) (*domain.Profile, error) {
	var raw object
	if err := c.do(ctx, http.MethodPut, "/api/users/profile", token, in, &raw); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	p := decodeProfile(userObject(raw))
	return &p, nil
}

func decodeSession(raw object) (*Session, error) {
	token := raw.str("token", "accessToken", "access_token")
	if token == "" {
		if data := raw.object("data"); data != nil {
			return decodeSession(data)
		}
		return nil, fmt.Errorf("decode session: %w", errMissingToken)
	}
	return &Session{Token: token, Profile: decodeProfile(userObject(raw))}, nil
}

// userObject unwraps {user: {...}} and {data: {...}} envelopes.
func userObject(raw object) object {
	for _, key := range []string{"user", "data", "profile"} {
		if inner := raw.object(key); inner != nil {
			return inner
		}
	}
	return raw
}

func decodeProfile(o object) domain.Profile {
	return domain.Profile{
		ID:    o.str("_id", "id", "userId"),
		Name:  o.str("name", "username", "displayName"),
		Email: o.str("email"),
		Role:  o.str("role"),
	}
}

var errMissingToken = errors.New("response has no token")
