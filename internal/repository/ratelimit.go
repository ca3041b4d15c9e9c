package repository

import (
	"context"
	"fmt"
)

type RateLimits struct {
	db DBTX
}

func NewRateLimits(db DBTX) *RateLimits {
	return &RateLimits{db: db}
}

const checkAndIncrementRateLimit = `
INSERT INTO rate_limits (chat_id, window_start, count)
VALUES ($1, date_trunc('minute', now()), 1)
ON CONFLICT (chat_id) DO UPDATE SET
    count = CASE
        WHEN rate_limits.window_start = date_trunc('minute', now()) THEN rate_limits.count + 1
        ELSE 1
    END,
    window_start = date_trunc('minute', now())
RETURNING count`

// CheckAndIncrement counts a message in the current minute window and
// returns the new count.
func (r *RateLimits) CheckAndIncrement(ctx context.Context, chatID int64) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, checkAndIncrementRateLimit, chatID).Scan(&count); err != nil {
		return 0, fmt.Errorf("check rate limit: %w", err)
	}
	return count, nil
}

const cleanupRateLimits = `
DELETE FROM rate_limits WHERE window_start < now() - interval '5 minutes'`

func (r *RateLimits) Cleanup(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, cleanupRateLimits)
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limits: %w", err)
	}
	return tag.RowsAffected(), nil
}
