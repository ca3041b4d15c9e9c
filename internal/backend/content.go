package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/set-night/mindchat/internal/domain"
)

type QuoteInput struct {
	Text       string `json:"text"`
	Author     string `json:"author,omitempty"`
	CategoryID string `json:"categoryId"`
}

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ContentInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
}

func (c *Client) Categories(ctx context.Context, token string) ([]domain.Category, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/categories", token, nil, &raw); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	list := listOf(raw, "categories", "data")
	out := make([]domain.Category, 0, len(list))
	for _, o := range list {
		out = append(out, decodeCategory(o))
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, token string, in CategoryInput) (*domain.Category, error) {
	var raw object
	if err := c.do(ctx, http.MethodPost, "/api/categories", token, in, &raw); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	cat := decodeCategory(unwrap(raw, "category"))
	return &cat, nil
}

func (c *Client) DeleteCategory(ctx context.Context, token, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/categories/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// Quotes lists quotes, optionally restricted to one category.
func (c *Client) Quotes(ctx context.Context, token, categoryID string) ([]domain.Quote, error) {
	path := "/api/quotes"
	if categoryID != "" {
		path += "?" + url.Values{"category": {categoryID}}.Encode()
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	list := listOf(raw, "quotes", "data")
	out := make([]domain.Quote, 0, len(list))
	for _, o := range list {
		out = append(out, decodeQuote(o))
	}
	return out, nil
}

func (c *Client) CreateQuote(ctx context.Context, token string, in QuoteInput) (*domain.Quote, error) {
	var raw object
	if err := c.do(ctx, http.MethodPost, "/api/quotes", token, in, &raw); err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	q := decodeQuote(unwrap(raw, "quote"))
	return &q, nil
}

func (c *Client) DeleteQuote(ctx context.Context, token, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/quotes/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}

func (c *Client) Contents(ctx context.Context, token string) ([]domain.Content, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/contents", token, nil, &raw); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	list := listOf(raw, "contents", "data")
	out := make([]domain.Content, 0, len(list))
	for _, o := range list {
		out = append(out, domain.Content{
			ID:        o.str("_id", "id"),
			Title:     o.str("title", "judul"),
			Body:      o.str("body", "content", "isi"),
			Category:  o.str("category", "kategori"),
			CreatedAt: o.time("createdAt", "created_at"),
		})
	}
	return out, nil
}

func (c *Client) CreateContent(ctx context.Context, token string, in ContentInput) error {
	if err := c.do(ctx, http.MethodPost, "/api/contents", token, in, nil); err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

func (c *Client) DeleteContent(ctx context.Context, token, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/contents/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

func (c *Client) Users(ctx context.Context, token string) ([]domain.UserSummary, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/users", token, nil, &raw); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	list := listOf(raw, "users", "data")
	out := make([]domain.UserSummary, 0, len(list))
	for _, o := range list {
		out = append(out, domain.UserSummary{
			ID:        o.str("_id", "id"),
			Name:      o.str("name", "username"),
			Email:     o.str("email"),
			Role:      o.str("role"),
			CreatedAt: o.time("createdAt", "created_at"),
		})
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func decodeCategory(o object) domain.Category {
	return domain.Category{
		ID:          o.str("_id", "id"),
		Name:        o.str("name", "nama"),
		Description: o.str("description", "deskripsi"),
	}
}

func decodeQuote(o object) domain.Quote {
	q := domain.Quote{
		ID:         o.str("_id", "id"),
		Text:       o.str("text", "quote", "kutipan"),
		Author:     o.str("author", "penulis"),
		CategoryID: o.str("categoryId", "category_id"),
	}
	// category may be an id string or a populated object
	if cat := o.object("category"); cat != nil {
		q.CategoryID = cat.str("_id", "id")
		q.Category = cat.str("name", "nama")
	} else if id := o.str("category"); id != "" && q.CategoryID == "" {
		q.CategoryID = id
	}
	return q
}

func unwrap(raw object, key string) object {
	if inner := raw.object(key); inner != nil {
		return inner
	}
	if inner := raw.object("data"); inner != nil {
		return inner
	}
	return raw
}
