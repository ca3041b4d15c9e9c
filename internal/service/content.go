package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/domain"
)

// ContentService serves quotes and categories to everyone and the content
// management operations to admins.
type ContentService struct {
	backend    ContentBackend
	categories *Cache[[]domain.Category]
	quotes     *Cache[[]domain.Quote]
	intn       func(n int) int
}

func NewContentService(b ContentBackend, ttl time.Duration) *ContentService {
	return &ContentService{
		backend:    b,
		categories: NewCache[[]domain.Category](ttl),
		quotes:     NewCache[[]domain.Quote](ttl),
		intn:       rand.IntN,
	}
}

func (s *ContentService) Categories(ctx context.Context, token string) ([]domain.Category, error) {
	if cached, ok := s.categories.Get(); ok {
		return cached, nil
	}
	cats, err := s.backend.Categories(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})
	s.categories.Set(cats)
	return cats, nil
}

func (s *ContentService) Quotes(ctx context.Context, token string) ([]domain.Quote, error) {
	if cached, ok := s.quotes.Get(); ok {
		return cached, nil
	}
	quotes, err := s.backend.Quotes(ctx, token, "")
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	s.quotes.Set(quotes)
	return quotes, nil
}

// FindCategory resolves a category by id or case-insensitive name.
func (s *ContentService) FindCategory(ctx context.Context, token, ref string) (domain.Category, error) {
	ref = strings.TrimSpace(ref)
	cats, err := s.Categories(ctx, token)
	if err != nil {
		return domain.Category{}, err
	}
	for _, c := range cats {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

// RandomQuote picks any quote.
func (s *ContentService) RandomQuote(ctx context.Context, token string) (domain.Quote, error) {
	quotes, err := s.Quotes(ctx, token)
	if err != nil {
		return domain.Quote{}, err
	}
	return s.pick(quotes)
}

// MoodQuote picks a quote from the category matching the user's mood.
func (s *ContentService) MoodQuote(ctx context.Context, token, mood string) (domain.Quote, error) {
	cat, err := s.FindCategory(ctx, token, mood)
	if err != nil {
		return domain.Quote{}, err
	}
	quotes, err := s.Quotes(ctx, token)
	if err != nil {
		return domain.Quote{}, err
	}
	var matched []domain.Quote
	for _, q := range quotes {
		if q.CategoryID == cat.ID || strings.EqualFold(q.Category, cat.Name) {
			matched = append(matched, q)
		}
	}
	return s.pick(matched)
}

func (s *ContentService) pick(quotes []domain.Quote) (domain.Quote, error) {
	if len(quotes) == 0 {
		return domain.Quote{}, domain.ErrNoQuotes
	}
	return quotes[s.intn(len(quotes))], nil
}

// Admin operations. Each checks the role before touching the backend.

func (s *ContentService) AddCategory(ctx context.Context, state *domain.ClientState, name, description string) (*domain.Category, error) {
	if !state.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	cat, err := s.backend.CreateCategory(ctx, state.Token, backend.CategoryInput{Name: name, Description: strings.TrimSpace(description)})
	if err != nil {
		return nil, err
	}
	s.categories.Invalidate()
	return cat, nil
}

func (s *ContentService) DeleteCategory(ctx context.Context, state *domain.ClientState, ref string) error {
	if !state.IsAdmin() {
		return domain.ErrForbidden
	}
	cat, err := s.FindCategory(ctx, state.Token, ref)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteCategory(ctx, state.Token, cat.ID); err != nil {
		return err
	}
	s.categories.Invalidate()
	s.quotes.Invalidate()
	return nil
}

func (s *ContentService) AddQuote(ctx context.Context, state *domain.ClientState, categoryRef, text, author string) (*domain.Quote, error) {
	if !state.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &domain.ValidationError{Field: "text", Reason: "is required"}
	}
	cat, err := s.FindCategory(ctx, state.Token, categoryRef)
	if err != nil {
		return nil, err
	}
	q, err := s.backend.CreateQuote(ctx, state.Token, backend.QuoteInput{
		Text:       text,
		Author:     strings.TrimSpace(author),
		CategoryID: cat.ID,
	})
	if err != nil {
		return nil, err
	}
	s.quotes.Invalidate()
	return q, nil
}

func (s *ContentService) DeleteQuote(ctx context.Context, state *domain.ClientState, id string) error {
	if !state.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.backend.DeleteQuote(ctx, state.Token, id); err != nil {
		return err
	}
	s.quotes.Invalidate()
	return nil
}

func (s *ContentService) Contents(ctx context.Context, state *domain.ClientState) ([]domain.Content, error) {
	if !state.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.backend.Contents(ctx, state.Token)
}

func (s *ContentService) AddContent(ctx context.Context, state *domain.ClientState, title, body, category string) error {
	if !state.IsAdmin() {
		return domain.ErrForbidden
	}
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" {
		return &domain.ValidationError{Field: "title", Reason: "is required"}
	}
	if body == "" {
		return &domain.ValidationError{Field: "body", Reason: "is required"}
	}
	return s.backend.CreateContent(ctx, state.Token, backend.ContentInput{Title: title, Body: body, Category: strings.TrimSpace(category)})
}

func (s *ContentService) DeleteContent(ctx context.Context, state *domain.ClientState, id string) error {
	if !state.IsAdmin() {
		return domain.ErrForbidden
	}
	return s.backend.DeleteContent(ctx, state.Token, id)
}

func (s *ContentService) Users(ctx context.Context, state *domain.ClientState) ([]domain.UserSummary, error) {
	if !state.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.backend.Users(ctx, state.Token)
}

func (s *ContentService) DeleteUser(ctx context.Context, state *domain.ClientState, id string) error {
	if !state.IsAdmin() {
		return domain.ErrForbidden
	}
	if id == state.UserID {
		return &domain.ValidationError{Field: "user", Reason: "you cannot delete your own account here"}
	}
	return s.backend.DeleteUser(ctx, state.Token, id)
}

// CategoryShare is one row of the dashboard's quote distribution.
type CategoryShare struct {
	Category string
	Quotes   int
	Percent  decimal.Decimal
}

type DashboardStats struct {
	Users      int
	Admins     int
	Quotes     int
	Categories int
	Contents   int
	Shares     []CategoryShare
}

// Stats gathers the admin dashboard numbers with the four listings fetched
// in parallel.
func (s *ContentService) Stats(ctx context.Context, state *domain.ClientState) (*DashboardStats, error) {
	if !state.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	var (
		users    []domain.UserSummary
		quotes   []domain.Quote
		cats     []domain.Category
		contents []domain.Content
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.backend.Users(gctx, state.Token)
		return err
	})
	g.Go(func() error {
		var err error
		quotes, err = s.backend.Quotes(gctx, state.Token, "")
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.backend.Categories(gctx, state.Token)
		return err
	})
	g.Go(func() error {
		var err error
		contents, err = s.backend.Contents(gctx, state.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	stats := &DashboardStats{
		Users:      len(users),
		Quotes:     len(quotes),
		Categories: len(cats),
		Contents:   len(contents),
		Shares:     quoteShares(cats, quotes),
	}
	for _, u := range users {
		if u.Role == "admin" {
			stats.Admins++
		}
	}
	return stats, nil
}

const uncategorized = "Uncategorized"

// quoteShares returns each category's share of all quotes, largest first.
// Percentages are rounded to one decimal place.
func quoteShares(cats []domain.Category, quotes []domain.Quote) []CategoryShare {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	counts := make(map[string]int)
	var order []string
	for _, q := range quotes {
		name := names[q.CategoryID]
		if name == "" {
			name = q.Category
		}
		if name == "" {
			name = uncategorized
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}

	total := decimal.NewFromInt(int64(len(quotes)))
	shares := make([]CategoryShare, 0, len(order))
	for _, name := range order {
		n := counts[name]
		shares = append(shares, CategoryShare{
			Category: name,
			Quotes:   n,
			Percent:  decimal.NewFromInt(int64(n)).Div(total).Mul(decimal.NewFromInt(100)).Round(1),
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Quotes > shares[j].Quotes
	})
	return shares
}
