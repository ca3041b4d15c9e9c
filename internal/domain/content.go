package domain

import "time"

type Category struct {
	ID          string
	Name        string
	Description string
}

type Quote struct {
	ID         string
	Text       string
	Author     string
	CategoryID string
	Category   string
}

// Content is an article or exercise published from the admin dashboard.
type Content struct {
	ID        string
	Title     string
	Body      string
	Category  string
	CreatedAt time.Time
}

type UserSummary struct {
	ID        string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

// Profile is the authenticated user's account as the backend reports it.
type Profile struct {
	ID    string
	Name  string
	Email string
	Role  string
}
