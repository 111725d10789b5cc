package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// AppendUpdate persists a dreamstate update. Updates are append-only and
// never mutated afterwards.
func (s *SQLiteStore) AppendUpdate(ctx context.Context, u *model.DreamstateUpdate) error {
	if u == nil {
		return errs.Validation("update", "must not be nil")
	}
	if u.PersonaID == "" {
		return errs.Validation("update.persona_id", "must not be empty")
	}
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	prev, err := json.Marshal(u.Previous)
	if err != nil {
		return errs.Storage("encode previous state", err)
	}
	next, err := json.Marshal(u.New)
	if err != nil {
		return errs.Storage("encode new state", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dreamstate_updates (id, persona_id, description, justification, previous_state, new_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.PersonaID, u.Description, u.Justification, string(prev), string(next), formatTime(u.CreatedAt))
	if err != nil {
		return errs.Storage("insert dreamstate update", err)
	}
	return nil
}

// RecentUpdates returns up to limit updates, newest first.
func (s *SQLiteStore) RecentUpdates(ctx context.Context, limit int) ([]model.DreamstateUpdate, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, persona_id, description, justification, previous_state, new_state, created_at
		 FROM dreamstate_updates ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Storage("query dreamstate updates", err)
	}
	defer rows.Close()

	var updates []model.DreamstateUpdate
	for rows.Next() {
		var u model.DreamstateUpdate
		var prev, next, createdAt string
		if err := rows.Scan(&u.ID, &u.PersonaID, &u.Description, &u.Justification, &prev, &next, &createdAt); err != nil {
			return nil, errs.Storage("scan dreamstate update", err)
		}
		if err := json.Unmarshal([]byte(prev), &u.Previous); err != nil {
			return nil, fmt.Errorf("decode previous state: %w", err)
		}
		if err := json.Unmarshal([]byte(next), &u.New); err != nil {
			return nil, fmt.Errorf("decode new state: %w", err)
		}
		u.CreatedAt = parseTime(createdAt)
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
