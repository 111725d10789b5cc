package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// SavePersona inserts or updates the persona row. An empty id means a new
// persona; the store assigns a ULID.
func (s *SQLiteStore) SavePersona(ctx context.Context, p *model.Persona) error {
	if p == nil {
		return errs.Validation("persona", "must not be nil")
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}

	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return errs.Storage("encode traits", err)
	}
	values, err := json.Marshal(p.Values)
	if err != nil {
		return errs.Storage("encode values", err)
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return errs.Storage("encode preferences", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO persona (id, traits, "values", preferences, biography, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   traits = excluded.traits,
		   "values" = excluded."values",
		   preferences = excluded.preferences,
		   biography = excluded.biography,
		   last_updated = excluded.last_updated`,
		p.ID, string(traits), string(values), string(prefs), p.Biography, formatTime(p.LastUpdated))
	if err != nil {
		return errs.Storage("save persona", err)
	}
	return nil
}

// CurrentPersona returns the most recently updated persona.
func (s *SQLiteStore) CurrentPersona(ctx context.Context) (*model.Persona, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, traits, "values", preferences, biography, last_updated
		 FROM persona ORDER BY last_updated DESC LIMIT 1`)

	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("current persona: %w", errs.ErrNotFound)
	}
	if err != nil {
		return nil, errs.Storage("load persona", err)
	}
	return p, nil
}

func scanPersona(row scanner) (*model.Persona, error) {
	var p model.Persona
	var traits, values, prefs, lastUpdated string

	if err := row.Scan(&p.ID, &traits, &values, &prefs, &p.Biography, &lastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return nil, fmt.Errorf("decode traits: %w", err)
	}
	if err := json.Unmarshal([]byte(values), &p.Values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	p.LastUpdated = parseTime(lastUpdated)
	return &p, nil
}
