package model

import (
	"strings"
	"time"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Conversation is a recorded, time-bounded exchange between participants.
// Messages are append-only; EndedAt is nil while the conversation is open.
// At most one open conversation exists system-wide.
type Conversation struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Participants []string   `json:"participants"`
	Messages     []Message  `json:"messages"`
}

// NewConversation opens a conversation starting now. Participants are an
// ordered set: duplicates and empty entries are dropped, first-seen order
// kept.
func NewConversation(id string, participants []string) *Conversation {
	return &Conversation{
		ID:           id,
		StartedAt:    time.Now().UTC(),
		Participants: DedupTags(participants),
	}
}

// Open reports whether the conversation has not been closed yet.
func (c *Conversation) Open() bool { return c.EndedAt == nil }

// Append records one more turn.
func (c *Conversation) Append(role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content, Time: time.Now().UTC()})
}

// Close marks the conversation ended at the given time.
func (c *Conversation) Close(at time.Time) {
	t := at.UTC()
	c.EndedAt = &t
}

// RawText is the derived transcript: one "role: content" line per message.
// It grows monotonically as messages are appended.
func (c *Conversation) RawText() string {
	var b strings.Builder
	for i, m := range c.Messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// Duration returns how long the conversation lasted. The second return is
// false while the conversation is still open.
func (c *Conversation) Duration() (time.Duration, bool) {
	if c.EndedAt == nil {
		return 0, false
	}
	return c.EndedAt.Sub(c.StartedAt), true
}
