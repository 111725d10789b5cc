// Package awakening composes persona, memories and dreamstate history into
// the context handed to the agent when it wakes, and renders it as a
// human-readable prompt.
package awakening

import (
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// UpdateDiff pairs a dreamstate update with its computed field diff.
type UpdateDiff struct {
	Update model.DreamstateUpdate `json:"update"`
	Diff   model.StateDiff        `json:"diff"`
}

// Context is everything loaded on awakening.
type Context struct {
	Persona           *model.Persona `json:"persona"`
	RecentMemories    []model.Memory `json:"recent_memories"`
	ImportantMemories []model.Memory `json:"important_memories"`
	RecentUpdates     []UpdateDiff   `json:"recent_updates"`
	AssembledAt       time.Time      `json:"assembled_at"`
}

// Assemble builds a Context, computing the diff for each update.
func Assemble(persona *model.Persona, recent, important []model.Memory, updates []model.DreamstateUpdate) *Context {
	diffs := make([]UpdateDiff, 0, len(updates))
	for _, u := range updates {
		diffs = append(diffs, UpdateDiff{Update: u, Diff: u.Diff()})
	}
	return &Context{
		Persona:           persona,
		RecentMemories:    recent,
		ImportantMemories: important,
		RecentUpdates:     diffs,
		AssembledAt:       time.Now().UTC(),
	}
}
