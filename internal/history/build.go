package history

import "github.com/set-night/mindchat/internal/domain"

// Build produces the session list from a history payload. Flat dialog
// records are reconciled; pre-grouped sessions only fill in ids the
// dialog did not cover.
func Build(grouped []domain.ChatSession, dialog []domain.DialogRecord) []domain.ChatSession {
	sessions := Reconcile(dialog)
	if len(grouped) == 0 {
		return sessions
	}

	seen := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		seen[s.SessionID] = struct{}{}
	}
	for _, s := range grouped {
		if _, ok := seen[s.SessionID]; ok {
			continue
		}
		seen[s.SessionID] = struct{}{}
		sessions = append(sessions, s.Clone())
	}
	return Normalize(sessions)
}
