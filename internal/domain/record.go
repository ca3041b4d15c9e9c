package domain

import "time"

// DialogRecord is one validated question/answer row from the history
// backend. Zero timestamps mean the server did not send one.
type DialogRecord struct {
	SessionID string
	RecordID  string
	Question  string
	Answer    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupKey is the id a record is grouped under: the session id, or the
// record id when the session id is missing.
func (r *DialogRecord) GroupKey() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.RecordID
}
