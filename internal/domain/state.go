package domain

import "time"

// ClientState is the typed replacement for the browser key-value store: the
// identity and preferences persisted per Telegram chat.
type ClientState struct {
	ChatID        int64
	Token         string
	UserID        string
	DisplayName   string
	Email         string
	Role          string
	IsGuest       bool
	GuestName     string
	LastSessionID string
	Theme         string
	UpdatedAt     time.Time
}

// IsAuthenticated reports whether a backend token is stored.
func (s *ClientState) IsAuthenticated() bool {
	return s.Token != "" && s.UserID != ""
}

// HasIdentity is true for logged-in users and guests alike.
func (s *ClientState) HasIdentity() bool {
	return s.IsAuthenticated() || s.IsGuest
}

func (s *ClientState) IsAdmin() bool {
	return s.IsAuthenticated() && s.Role == "admin"
}

// Name is what the bot calls the user.
func (s *ClientState) Name() string {
	if s.IsGuest {
		return s.GuestName
	}
	return s.DisplayName
}

// ClearIdentity drops credentials and guest data but keeps preferences.
func (s *ClientState) ClearIdentity() {
	s.Token = ""
	s.UserID = ""
	s.DisplayName = ""
	s.Email = ""
	s.Role = ""
	s.IsGuest = false
	s.GuestName = ""
	s.LastSessionID = ""
}
