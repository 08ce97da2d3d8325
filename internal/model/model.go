package model

import "time"

// Message is a single conversation entry. Messages are immutable after
// creation; the one exception is wholesale replacement of a session's
// message list when a chat is cleared.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one persisted conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultTitle is assigned at creation and replaced once the session's
// first message is known.
const DefaultTitle = "New Chat"

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (s *Session) Clone() *Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}
