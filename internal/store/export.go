package store

import (
	"context"
	"encoding/json"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// Export is a full audit dump of the derived record sets: every memory
// (oldest first) and the complete dreamstate chain.
type Export struct {
	Memories []model.Memory           `json:"memories"`
	Updates  []model.DreamstateUpdate `json:"dreamstate_updates"`
}

// ExportAll returns all memories and dreamstate updates in creation order.
func (s *SQLiteStore) ExportAll(ctx context.Context) (*Export, error) {
	memories, err := s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}

	// RecentUpdates caps at a limit; the export walks the full chain.
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dreamstate_updates`).Scan(&total); err != nil {
		return nil, errs.Storage("count dreamstate updates", err)
	}

	updates, err := s.RecentUpdates(ctx, total)
	if err != nil {
		return nil, err
	}
	// Reverse to creation order for a chronological audit trail.
	for i, j := 0, len(updates)-1; i < j; i, j = i+1, j-1 {
		updates[i], updates[j] = updates[j], updates[i]
	}

	return &Export{Memories: memories, Updates: updates}, nil
}

// ImportMemories loads memories produced by a prior export back into the
// store. Records whose id already exists are skipped, so re-importing the
// same dump is safe. It returns the number of rows actually inserted.
func (s *SQLiteStore) ImportMemories(ctx context.Context, memories []model.Memory) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Storage("import memories", err)
	}
	defer tx.Rollback()

	imported := 0
	for _, m := range memories {
		if m.ID == "" {
			m.ID = s.newID()
		}
		m.Importance = model.ClampImportance(m.Importance)
		tags, err := json.Marshal(model.DedupTags(m.Tags))
		if err != nil {
			return 0, errs.Storage("import memories", err)
		}

		// Source conversations are not part of the dump; keep the
		// reference only when the conversation exists here, otherwise
		// store NULL so the foreign key holds.
		var convID *string
		if m.ConversationID != "" {
			var n int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM conversations WHERE id = ?`, m.ConversationID).Scan(&n); err != nil {
				return 0, errs.Storage("import memories", err)
			}
			if n > 0 {
				convID = &m.ConversationID
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO memories (id, conversation_id, summary, importance, tags, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, convID, m.Summary, m.Importance, string(tags), formatTime(m.CreatedAt))
		if err != nil {
			return 0, errs.Storage("import memories", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.Storage("import memories", err)
	}
	return imported, nil
}
