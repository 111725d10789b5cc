package dream

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// PersonaWriter persists the evolved persona.
type PersonaWriter interface {
	SavePersona(ctx context.Context, p *model.Persona) error
}

// UpdateWriter appends to the dreamstate audit trail.
type UpdateWriter interface {
	AppendUpdate(ctx context.Context, u *model.DreamstateUpdate) error
}

// Evolver commits dreamstate reflections: it snapshots the persona, applies
// the reflector's changes, persists the persona and appends an audit
// update. Even a no-change reflection writes an update so the chain records
// every sleep.
type Evolver struct {
	personas  PersonaWriter
	updates   UpdateWriter
	reflector Reflector
	logger    *slog.Logger
}

// NewEvolver builds an Evolver. A nil reflector falls back to Heuristic; a
// nil logger falls back to slog.Default.
func NewEvolver(personas PersonaWriter, updates UpdateWriter, reflector Reflector, logger *slog.Logger) *Evolver {
	if reflector == nil {
		reflector = Heuristic{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evolver{personas: personas, updates: updates, reflector: reflector, logger: logger}
}

// EvolveDreamstate mutates the persona in place per the reflection and
// returns the appended DreamstateUpdate. The previous-state snapshot is
// taken before any mutation so the update chain stays consistent.
func (e *Evolver) EvolveDreamstate(ctx context.Context, persona *model.Persona, memories []model.Memory) (*model.DreamstateUpdate, error) {
	if persona == nil {
		return nil, errs.Validation("persona", "must not be nil")
	}

	changes, err := e.reflector.Reflect(persona, memories)
	if err != nil {
		return nil, err
	}

	prev := persona.State()
	now := time.Now().UTC()

	if !changes.Empty() {
		for k, v := range changes.Traits {
			persona.Traits[k] = v
		}
		for k, v := range changes.Values {
			persona.Values[k] = v
		}
		for k, v := range changes.Preferences {
			persona.Preferences[k] = v
		}
		if changes.BiographyAppend != "" {
			persona.Biography = strings.TrimSpace(persona.Biography + " " + changes.BiographyAppend)
		}
		persona.LastUpdated = now
		if err := e.personas.SavePersona(ctx, persona); err != nil {
			return nil, err
		}
	}

	update := &model.DreamstateUpdate{
		PersonaID:     persona.ID,
		Description:   changes.Description,
		Justification: changes.Justification,
		Previous:      prev,
		New:           persona.State(),
		CreatedAt:     now,
	}
	if err := e.updates.AppendUpdate(ctx, update); err != nil {
		return nil, err
	}

	e.logger.Debug("dreamstate evolved",
		"persona_id", persona.ID,
		"memories", len(memories),
		"description", changes.Description)
	return update, nil
}
