package history

import (
	"slices"

	"github.com/set-night/mindchat/internal/domain"
)

// Merge rebuilds the session list from server truth while keeping local
// optimistic sessions the server has not seen yet. Server data wins for any
// session id present on both sides.
func Merge(server, local []domain.ChatSession) []domain.ChatSession {
	known := make(map[string]struct{}, len(server))
	for _, s := range server {
		known[s.SessionID] = struct{}{}
	}

	merged := make([]domain.ChatSession, 0, len(server)+len(local))
	for _, s := range local {
		if !s.Optimistic {
			continue
		}
		if _, ok := known[s.SessionID]; ok {
			continue
		}
		merged = append(merged, s.Clone())
	}
	merged = append(merged, server...)

	slices.SortStableFunc(merged, func(a, b domain.ChatSession) int {
		return b.LastUpdatedAt.Compare(a.LastUpdatedAt)
	})
	return merged
}
