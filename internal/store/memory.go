package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

const memoryColumns = `id, conversation_id, summary, importance, tags, created_at`

// PutMemory persists a memory record. Importance is clamped and tags are
// deduplicated before writing, so the stored row always satisfies the
// global invariants.
func (s *SQLiteStore) PutMemory(ctx context.Context, m *model.Memory) error {
	if m == nil {
		return errs.Validation("memory", "must not be nil")
	}
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Importance = model.ClampImportance(m.Importance)
	m.Tags = model.DedupTags(m.Tags)

	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return errs.Storage("encode tags", err)
	}

	var convID *string
	if m.ConversationID != "" {
		convID = &m.ConversationID
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, conversation_id, summary, importance, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, convID, m.Summary, m.Importance, string(tags), formatTime(m.CreatedAt))
	if err != nil {
		return errs.Storage("insert memory", err)
	}
	return nil
}

// GetMemory returns a memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)

	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, errs.Storage("load memory", err)
	}
	return m, nil
}

// RecentMemories returns up to limit memories, newest first.
func (s *SQLiteStore) RecentMemories(ctx context.Context, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories ORDER BY created_at DESC LIMIT ?`, limit)
}

// ImportantMemories returns up to limit memories with importance >=
// threshold, ordered by importance descending then recency.
func (s *SQLiteStore) ImportantMemories(ctx context.Context, threshold, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE importance >= ?
		 ORDER BY importance DESC, created_at DESC LIMIT ?`, threshold, limit)
}

// SearchMemoriesByTags fetches, for each queried tag, the memories whose
// serialized tag set contains the tag as a substring, unions the results
// deduplicated by id (first occurrence wins), orders by importance
// descending then recency, and truncates to limit.
//
// The substring match runs against the raw JSON text, so a query for "code"
// also hits a memory tagged "decode". That looseness is kept on purpose to
// match the behavior this store replaces.
func (s *SQLiteStore) SearchMemoriesByTags(ctx context.Context, tags []string, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 10
	}

	seen := map[string]bool{}
	var out []model.Memory
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		matches, err := s.queryMemories(ctx,
			`SELECT `+memoryColumns+` FROM memories WHERE tags LIKE ?`, "%"+tag+"%")
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AmendImportance replaces a memory's importance score, clamped to the
// valid range. The only mutation allowed besides tag amendment.
func (s *SQLiteStore) AmendImportance(ctx context.Context, id string, importance int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET importance = ? WHERE id = ?`,
		model.ClampImportance(importance), id)
	if err != nil {
		return errs.Storage("amend importance", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// AmendTags replaces a memory's tag set, deduplicated.
func (s *SQLiteStore) AmendTags(ctx context.Context, id string, tags []string) error {
	b, err := json.Marshal(model.DedupTags(tags))
	if err != nil {
		return errs.Storage("encode tags", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET tags = ? WHERE id = ?`, string(b), id)
	if err != nil {
		return errs.Storage("amend tags", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...interface{}) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Storage("query memories", err)
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errs.Storage("scan memory", err)
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

func scanMemory(row scanner) (*model.Memory, error) {
	var m model.Memory
	var convID sql.NullString
	var tags, createdAt string

	if err := row.Scan(&m.ID, &convID, &m.Summary, &m.Importance, &tags, &createdAt); err != nil {
		return nil, err
	}
	if convID.Valid {
		m.ConversationID = convID.String
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}
