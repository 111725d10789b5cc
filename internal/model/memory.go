package model

import "time"

// Memory is a scored, tagged distillation of one closed conversation.
// Records are immutable once created except for importance and tag
// amendments made through the store.
type Memory struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Summary        string    `json:"summary"`
	Importance     int       `json:"importance"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MinImportance and MaxImportance bound every stored importance score.
const (
	MinImportance = 1
	MaxImportance = 10
)

// ClampImportance bounds a raw score to [MinImportance, MaxImportance].
func ClampImportance(n int) int {
	if n < MinImportance {
		return MinImportance
	}
	if n > MaxImportance {
		return MaxImportance
	}
	return n
}

// DedupTags removes duplicate and empty entries from a string set,
// preserving first-seen order. Used for tag sets and participant lists.
func DedupTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := tags[:0:0]
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
