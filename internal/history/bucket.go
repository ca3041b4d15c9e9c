package history

import (
	"time"

	"github.com/set-night/mindchat/internal/domain"
)

type Bucket int

const (
	BucketToday Bucket = iota
	BucketWeek
	BucketMonth
	BucketOlder
)

func (b Bucket) Label() string {
	switch b {
	case BucketToday:
		return "Today"
	case BucketWeek:
		return "Previous 7 days"
	case BucketMonth:
		return "Previous 30 days"
	default:
		return "Older"
	}
}

// BucketOf places t relative to the start of now's day.
func BucketOf(t, now time.Time) Bucket {
	t = t.In(now.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case !t.Before(dayStart):
		return BucketToday
	case !t.Before(dayStart.AddDate(0, 0, -7)):
		return BucketWeek
	case !t.Before(dayStart.AddDate(0, 0, -30)):
		return BucketMonth
	default:
		return BucketOlder
	}
}

type BucketGroup struct {
	Bucket   Bucket
	Sessions []domain.ChatSession
}

// GroupByBucket keeps input order inside each bucket and omits empty ones.
func GroupByBucket(sessions []domain.ChatSession, now time.Time) []BucketGroup {
	var byBucket [BucketOlder + 1][]domain.ChatSession
	for _, s := range sessions {
		b := BucketOf(s.LastUpdatedAt, now)
		byBucket[b] = append(byBucket[b], s)
	}

	var groups []BucketGroup
	for b, list := range byBucket {
		if len(list) == 0 {
			continue
		}
		groups = append(groups, BucketGroup{Bucket: Bucket(b), Sessions: list})
	}
	return groups
}
