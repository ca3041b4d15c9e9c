package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Subscriptions tracks chats that receive the daily quote.
type Subscriptions struct {
	db DBTX
}

func NewSubscriptions(db DBTX) *Subscriptions {
	return &Subscriptions{db: db}
}

func (r *Subscriptions) Subscribe(ctx context.Context, chatID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quote_subscriptions (chat_id) VALUES ($1) ON CONFLICT DO NOTHING`, chatID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (r *Subscriptions) Unsubscribe(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quote_subscriptions WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (r *Subscriptions) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quote_subscriptions WHERE chat_id = $1)`, chatID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return ok, nil
}

func (r *Subscriptions) List(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT chat_id FROM quote_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	return ids, nil
}
