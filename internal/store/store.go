// Package store provides the storage interfaces and SQLite implementation
// for the four record sets of the memory lifecycle: persona, conversations,
// memories and dreamstate updates. Composite fields are serialized as JSON
// TEXT and round-trip losslessly.
package store

import (
	"context"

	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// PersonaStore loads and saves the single evolving persona record.
type PersonaStore interface {
	// SavePersona inserts or updates a persona, assigning an id when empty.
	SavePersona(ctx context.Context, p *model.Persona) error

	// CurrentPersona returns the most recently updated persona, or an error
	// wrapping errs.ErrNotFound when none exists.
	CurrentPersona(ctx context.Context) (*model.Persona, error)
}

// ConversationLog records in-progress and closed dialogues.
type ConversationLog interface {
	// SaveConversation inserts or updates a conversation by id.
	SaveConversation(ctx context.Context, c *model.Conversation) error

	// OpenConversation returns the open (ended_at IS NULL) conversation, or
	// an error wrapping errs.ErrNotFound when none is open.
	OpenConversation(ctx context.Context) (*model.Conversation, error)

	// GetConversation returns a conversation by id.
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
}

// MemoryStore persists immutable memory records and supports recency,
// importance-threshold and tag-based retrieval.
type MemoryStore interface {
	// PutMemory persists a memory, assigning id and timestamp when unset.
	PutMemory(ctx context.Context, m *model.Memory) error

	// GetMemory returns a memory by id.
	GetMemory(ctx context.Context, id string) (*model.Memory, error)

	// RecentMemories returns up to limit memories, newest first.
	RecentMemories(ctx context.Context, limit int) ([]model.Memory, error)

	// ImportantMemories returns up to limit memories with
	// importance >= threshold, ordered by importance then recency.
	ImportantMemories(ctx context.Context, threshold, limit int) ([]model.Memory, error)

	// SearchMemoriesByTags unions per-tag matches, deduplicates by id and
	// orders by importance then recency, truncated to limit.
	SearchMemoriesByTags(ctx context.Context, tags []string, limit int) ([]model.Memory, error)

	// AmendImportance replaces a memory's importance score (clamped).
	AmendImportance(ctx context.Context, id string, importance int) error

	// AmendTags replaces a memory's tag set (deduplicated).
	AmendTags(ctx context.Context, id string, tags []string) error
}

// DreamstateLog is the append-only audit trail of persona evolutions.
type DreamstateLog interface {
	// AppendUpdate persists an update, assigning id and timestamp when unset.
	AppendUpdate(ctx context.Context, u *model.DreamstateUpdate) error

	// RecentUpdates returns up to limit updates, newest first.
	RecentUpdates(ctx context.Context, limit int) ([]model.DreamstateUpdate, error)
}

// Store is the full storage surface the lifecycle controller owns.
type Store interface {
	PersonaStore
	ConversationLog
	MemoryStore
	DreamstateLog

	// Close closes the store.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
