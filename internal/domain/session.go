package domain

import (
	"time"
)

// Sender tags who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Epoch is the timestamp used when the server omits one.
var Epoch = time.UnixMilli(0).UTC()

// ChatSession is one conversation thread as the client sees it.
type ChatSession struct {
	SessionID     string
	DisplayID     string
	Title         string
	Messages      []Message
	CreatedAt     time.Time
	LastUpdatedAt time.Time

	// Optimistic sessions were created locally and have not been
	// confirmed by a successful save yet.
	Optimistic bool
}

type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
	SessionID string
}

func (m *Message) IsFromUser() bool {
	return m.Sender == SenderUser
}

// FirstUserMessage returns the earliest user message, if any.
func (s *ChatSession) FirstUserMessage() *Message {
	for i := range s.Messages {
		if s.Messages[i].IsFromUser() {
			return &s.Messages[i]
		}
	}
	return nil
}

// UserMessageCount counts messages authored by the user.
func (s *ChatSession) UserMessageCount() int {
	n := 0
	for i := range s.Messages {
		if s.Messages[i].IsFromUser() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand out of a store.
func (s *ChatSession) Clone() ChatSession {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return c
}
