package service

import (
	"context"
	"sync"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/domain"
)

type fakeStates struct {
	mu    sync.Mutex
	saved map[int64]domain.ClientState
	last  map[int64]string
}

func newFakeStates() *fakeStates {
	return &fakeStates{saved: map[int64]domain.ClientState{}, last: map[int64]string{}}
}

func (f *fakeStates) GetOrDefault(_ context.Context, chatID int64) (*domain.ClientState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.saved[chatID]; ok {
		return &s, nil
	}
	return &domain.ClientState{ChatID: chatID}, nil
}

func (f *fakeStates) Save(_ context.Context, s *domain.ClientState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[s.ChatID] = *s
	return nil
}

func (f *fakeStates) SetLastSession(_ context.Context, chatID int64, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last[chatID] = sessionID
	return nil
}

func (f *fakeStates) ClearIdentity(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.saved[chatID]
	s.ClearIdentity()
	f.saved[chatID] = s
	return nil
}

type fakeAuth struct {
	session    *backend.Session
	loginErr   error
	verifyErr  error
	profile    *domain.Profile
	logins     int
	registered []backend.RegisterRequest
	changed    []backend.ChangePasswordRequest
	forgot     []string
}

func (f *fakeAuth) Login(_ context.Context, _ backend.LoginRequest) (*backend.Session, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.session, nil
}

func (f *fakeAuth) Register(_ context.Context, in backend.RegisterRequest) (*backend.Session, error) {
	f.registered = append(f.registered, in)
	return &backend.Session{}, nil
}

func (f *fakeAuth) Verify(_ context.Context, _ string) (*domain.Profile, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.profile, nil
}

func (f *fakeAuth) ForgotPassword(_ context.Context, email string) error {
	f.forgot = append(f.forgot, email)
	return nil
}

func (f *fakeAuth) ChangePassword(_ context.Context, _ string, in backend.ChangePasswordRequest) error {
	f.changed = append(f.changed, in)
	return nil
}

func (f *fakeAuth) Profile(_ context.Context, _ string) (*domain.Profile, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.profile, nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, _ string, in backend.UpdateProfileRequest) (*domain.Profile, error) {
	return &domain.Profile{Name: in.Name}, nil
}

type fakeHistory struct {
	history *backend.History
	renamed map[string]string
	deleted []string
	err     error
}

func (f *fakeHistory) FetchHistory(_ context.Context, _, _ string) (*backend.History, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

func (f *fakeHistory) RenameSession(_ context.Context, _, sessionID, title string) error {
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[sessionID] = title
	return f.err
}

func (f *fakeHistory) DeleteSession(_ context.Context, _, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return f.err
}

type fakeContent struct {
	mu         sync.Mutex
	categories []domain.Category
	quotes     []domain.Quote
	contents   []domain.Content
	users      []domain.UserSummary
	calls      map[string]int
	created    []backend.QuoteInput
}

func (f *fakeContent) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeContent) Categories(context.Context, string) ([]domain.Category, error) {
	f.count("categories")
	return append([]domain.Category(nil), f.categories...), nil
}

func (f *fakeContent) CreateCategory(_ context.Context, _ string, in backend.CategoryInput) (*domain.Category, error) {
	f.count("createCategory")
	return &domain.Category{ID: "new", Name: in.Name}, nil
}

func (f *fakeContent) DeleteCategory(context.Context, string, string) error {
	f.count("deleteCategory")
	return nil
}

func (f *fakeContent) Quotes(context.Context, string, string) ([]domain.Quote, error) {
	f.count("quotes")
	return append([]domain.Quote(nil), f.quotes...), nil
}

func (f *fakeContent) CreateQuote(_ context.Context, _ string, in backend.QuoteInput) (*domain.Quote, error) {
	f.count("createQuote")
	f.created = append(f.created, in)
	return &domain.Quote{ID: "q-new", Text: in.Text, CategoryID: in.CategoryID}, nil
}

func (f *fakeContent) DeleteQuote(context.Context, string, string) error {
	f.count("deleteQuote")
	return nil
}

func (f *fakeContent) Contents(context.Context, string) ([]domain.Content, error) {
	f.count("contents")
	return f.contents, nil
}

func (f *fakeContent) CreateContent(context.Context, string, backend.ContentInput) error {
	f.count("createContent")
	return nil
}

func (f *fakeContent) DeleteContent(context.Context, string, string) error {
	f.count("deleteContent")
	return nil
}

func (f *fakeContent) Users(context.Context, string) ([]domain.UserSummary, error) {
	f.count("users")
	return f.users, nil
}

func (f *fakeContent) DeleteUser(context.Context, string, string) error {
	f.count("deleteUser")
	return nil
}

type fakeSubs struct {
	ids []int64
}

func (f *fakeSubs) Subscribe(_ context.Context, chatID int64) error {
	f.ids = append(f.ids, chatID)
	return nil
}

func (f *fakeSubs) Unsubscribe(_ context.Context, chatID int64) error {
	for i, id := range f.ids {
		if id == chatID {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSubs) IsSubscribed(_ context.Context, chatID int64) (bool, error) {
	for _, id := range f.ids {
		if id == chatID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubs) List(context.Context) ([]int64, error) {
	return f.ids, nil
}
