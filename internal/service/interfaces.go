package service

import (
	"context"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/domain"
)

// StateStore persists per-chat client state. *repository.ClientStates
// satisfies it.
type StateStore interface {
	GetOrDefault(ctx context.Context, chatID int64) (*domain.ClientState, error)
	Save(ctx context.Context, s *domain.ClientState) error
	SetLastSession(ctx context.Context, chatID int64, sessionID string) error
	ClearIdentity(ctx context.Context, chatID int64) error
}

type AuthBackend interface {
	Login(ctx context.Context, in backend.LoginRequest) (*backend.Session, error)
	Register(ctx context.Context, in backend.RegisterRequest) (*backend.Session, error)
	Verify(ctx context.Context, token string) (*domain.Profile, error)
	ForgotPassword(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, token string, in backend.ChangePasswordRequest) error
	Profile(ctx context.Context, token string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, token string, in backend.UpdateProfileRequest) (*domain.Profile, error)
}

type HistoryBackend interface {
	FetchHistory(ctx context.Context, token, userID string) (*backend.History, error)
	RenameSession(ctx context.Context, token, sessionID, title string) error
	DeleteSession(ctx context.Context, token, sessionID string) error
}

type ContentBackend interface {
	Categories(ctx context.Context, token string) ([]domain.Category, error)
	CreateCategory(ctx context.Context, token string, in backend.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, token, id string) error
	Quotes(ctx context.Context, token, categoryID string) ([]domain.Quote, error)
	CreateQuote(ctx context.Context, token string, in backend.QuoteInput) (*domain.Quote, error)
	DeleteQuote(ctx context.Context, token, id string) error
	Contents(ctx context.Context, token string) ([]domain.Content, error)
	CreateContent(ctx context.Context, token string, in backend.ContentInput) error
	DeleteContent(ctx context.Context, token, id string) error
	Users(ctx context.Context, token string) ([]domain.UserSummary, error)
	DeleteUser(ctx context.Context, token, id string) error
}

type SubscriptionStore interface {
	Subscribe(ctx context.Context, chatID int64) error
	Unsubscribe(ctx context.Context, chatID int64) error
	IsSubscribed(ctx context.Context, chatID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
}
