package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// SaveConversation inserts or updates a conversation by id. Called on every
// appended message, so the open conversation survives a crash.
func (s *SQLiteStore) SaveConversation(ctx context.Context, c *model.Conversation) error {
	if c == nil {
		return errs.Validation("conversation", "must not be nil")
	}
	if c.ID == "" {
		return errs.Validation("conversation.id", "must not be empty")
	}

	participants, err := json.Marshal(c.Participants)
	if err != nil {
		return errs.Storage("encode participants", err)
	}
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return errs.Storage("encode messages", err)
	}

	var endedAt *string
	if c.EndedAt != nil {
		e := formatTime(*c.EndedAt)
		endedAt = &e
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, started_at, ended_at, participants, messages)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   ended_at = excluded.ended_at,
		   participants = excluded.participants,
		   messages = excluded.messages`,
		c.ID, formatTime(c.StartedAt), endedAt, string(participants), string(messages))
	if err != nil {
		return errs.Storage("save conversation", err)
	}
	return nil
}

// OpenConversation returns the single open conversation, if any.
func (s *SQLiteStore) OpenConversation(ctx context.Context) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at, participants, messages
		 FROM conversations WHERE ended_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`)

	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open conversation: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, errs.Storage("load open conversation", err)
	}
	return c, nil
}

// GetConversation returns a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at, participants, messages
		 FROM conversations WHERE id = ?`, id)

	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, errs.Storage("load conversation", err)
	}
	return c, nil
}

func scanConversation(row scanner) (*model.Conversation, error) {
	var c model.Conversation
	var startedAt string
	var endedAt sql.NullString
	var participants, messages string

	if err := row.Scan(&c.ID, &startedAt, &endedAt, &participants, &messages); err != nil {
		return nil, err
	}
	c.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		c.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(participants), &c.Participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	if err := json.Unmarshal([]byte(messages), &c.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &c, nil
}
