// Package lifecycle orchestrates the Awaken -> Converse -> Sleep cycle over
// the persona, conversation, memory and dreamstate stores. A Controller is
// an explicit, constructible object; independent sessions can coexist in
// one process by constructing one controller each (over separate stores).
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ScuffedEpoch/TINS-MCP/internal/awakening"
	"github.com/ScuffedEpoch/TINS-MCP/internal/distill"
	"github.com/ScuffedEpoch/TINS-MCP/internal/dream"
	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
	"github.com/ScuffedEpoch/TINS-MCP/internal/store"
)

// Defaults for the option structs below.
const (
	DefaultRecentMemoriesLimit        = 10
	DefaultImportantMemoriesThreshold = 7
	DefaultImportantMemoriesLimit     = 5
	DefaultRecentUpdatesLimit         = 3
	DefaultSleepMemoryLimit           = 20
	DefaultSearchLimit                = 10
)

// AwakenOptions tunes how much context is loaded on awakening.
type AwakenOptions struct {
	RecentMemoriesLimit        int
	ImportantMemoriesThreshold int
	ImportantMemoriesLimit     int
	RecentUpdatesLimit         int

	// Participants of the conversation opened on awakening; defaults to
	// user and assistant.
	Participants []string
}

func (o AwakenOptions) withDefaults() AwakenOptions {
	if o.RecentMemoriesLimit <= 0 {
		o.RecentMemoriesLimit = DefaultRecentMemoriesLimit
	}
	if o.ImportantMemoriesThreshold <= 0 {
		o.ImportantMemoriesThreshold = DefaultImportantMemoriesThreshold
	}
	if o.ImportantMemoriesLimit <= 0 {
		o.ImportantMemoriesLimit = DefaultImportantMemoriesLimit
	}
	if o.RecentUpdatesLimit <= 0 {
		o.RecentUpdatesLimit = DefaultRecentUpdatesLimit
	}
	if len(o.Participants) == 0 {
		o.Participants = []string{"user", "assistant"}
	}
	return o
}

// SleepOptions tunes the dreamstate evolution input. The default window is
// deliberately larger than the awakening defaults.
type SleepOptions struct {
	MemoryLimit int
}

// SearchOptions tunes memory search.
type SearchOptions struct {
	Limit int
}

// Status is a snapshot of the controller's state.
type Status struct {
	IsAwake               bool   `json:"is_awake"`
	HasActiveConversation bool   `json:"has_active_conversation"`
	PersonaID             string `json:"persona_id,omitempty"`
	ConversationID        string `json:"conversation_id,omitempty"`
}

// Controller is the lifecycle state machine. All mutating operations are
// serialized by one mutex; the "at most one open conversation" and "persona
// mutated by one evolver at a time" invariants depend on it.
type Controller struct {
	mu sync.Mutex

	store     store.Store
	processor *distill.Processor
	evolver   *dream.Evolver
	logger    *slog.Logger

	awake    bool
	persona  *model.Persona
	conv     *model.Conversation
	awakeCtx *awakening.Context
}

// New builds a Controller over the given store. Nil analyzer, reflector or
// logger fall back to the deterministic heuristics and slog.Default.
func New(st store.Store, analyzer distill.Analyzer, reflector dream.Reflector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:     st,
		processor: distill.NewProcessor(st, analyzer, logger),
		evolver:   dream.NewEvolver(st, st, reflector, logger),
		logger:    logger,
	}
}

// Initialize ensures a persona exists, creating the default one if none
// does. It performs no state transition.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ensurePersonaLocked(ctx)
	return err
}

func (c *Controller) ensurePersonaLocked(ctx context.Context) (*model.Persona, error) {
	if c.persona != nil {
		return c.persona, nil
	}
	p, err := c.store.CurrentPersona(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		p = model.DefaultPersona()
		if err := c.store.SavePersona(ctx, p); err != nil {
			return nil, err
		}
		c.logger.Info("default persona created", "persona_id", p.ID)
	} else if err != nil {
		return nil, err
	}
	c.persona = p
	return p, nil
}

// Awaken transitions Asleep to Awake: it loads the persona, recent and
// important memories and recent dreamstate updates, opens a new
// conversation and returns the assembled context. Calling Awaken while
// already awake is an idempotent no-op returning the existing context.
func (c *Controller) Awaken(ctx context.Context, opts AwakenOptions) (*awakening.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.awake {
		c.logger.Warn("awaken called while already awake", "conversation_id", c.conversationIDLocked())
		return c.awakeCtx, nil
	}
	o := opts.withDefaults()

	persona, err := c.ensurePersonaLocked(ctx)
	if err != nil {
		return nil, err
	}

	// A crashed or un-slept prior session may have left its conversation
	// open in the store. Close and distill it before opening a new one so
	// at most one open conversation exists system-wide.
	dangling, err := c.store.OpenConversation(ctx)
	if err == nil {
		c.logger.Warn("recovering dangling open conversation", "conversation_id", dangling.ID)
		dangling.Close(time.Now().UTC())
		if err := c.store.SaveConversation(ctx, dangling); err != nil {
			return nil, err
		}
		if _, err := c.processor.ProcessConversation(ctx, dangling, distill.Options{}); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	recent, err := c.store.RecentMemories(ctx, o.RecentMemoriesLimit)
	if err != nil {
		return nil, err
	}
	important, err := c.store.ImportantMemories(ctx, o.ImportantMemoriesThreshold, o.ImportantMemoriesLimit)
	if err != nil {
		return nil, err
	}
	updates, err := c.store.RecentUpdates(ctx, o.RecentUpdatesLimit)
	if err != nil {
		return nil, err
	}

	conv := model.NewConversation(uuid.NewString(), o.Participants)
	if err := c.store.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	c.awake = true
	c.conv = conv
	c.awakeCtx = awakening.Assemble(persona, recent, important, updates)

	c.logger.Info("awakened",
		"persona_id", persona.ID,
		"conversation_id", conv.ID,
		"recent_memories", len(recent),
		"important_memories", len(important),
		"dreamstate_updates", len(updates))
	return c.awakeCtx, nil
}

// RecordMessage appends a turn to the open conversation and persists it.
func (c *Controller) RecordMessage(ctx context.Context, role, content string) (*model.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if role == "" {
		return nil, errs.Validation("role", "must not be empty")
	}
	if content == "" {
		return nil, errs.Validation("content", "must not be empty")
	}
	if !c.awake {
		return nil, &errs.StateError{Op: "record message", State: "asleep"}
	}
	if c.conv == nil {
		return nil, &errs.StateError{Op: "record message", State: "no conversation open"}
	}

	c.conv.Append(role, content)
	if err := c.store.SaveConversation(ctx, c.conv); err != nil {
		return nil, err
	}
	return c.conv, nil
}

// EndConversation closes the open conversation, persists it and distills it
// into a memory. With no open conversation it returns nil and logs a
// warning instead of erroring.
func (c *Controller) EndConversation(ctx context.Context) (*model.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endConversationLocked(ctx)
}

func (c *Controller) endConversationLocked(ctx context.Context) (*model.Memory, error) {
	if c.conv == nil {
		c.logger.Warn("end conversation called with no open conversation")
		return nil, nil
	}

	conv := c.conv
	conv.Close(time.Now().UTC())
	if err := c.store.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	mem, err := c.processor.ProcessConversation(ctx, conv, distill.Options{})
	if err != nil {
		return nil, err
	}
	c.conv = nil

	c.logger.Info("conversation ended",
		"conversation_id", conv.ID,
		"memory_id", mem.ID,
		"importance", mem.Importance)
	return mem, nil
}

// Sleep transitions Awake to Asleep. Any open conversation is ended first,
// so no dangling open conversation survives the transition; then the most
// recent memories feed one dreamstate evolution. Sleeping while already
// asleep returns nil and logs a warning.
func (c *Controller) Sleep(ctx context.Context, opts SleepOptions) (*model.DreamstateUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.awake {
		c.logger.Warn("sleep called while already asleep")
		return nil, nil
	}
	if c.conv != nil {
		if _, err := c.endConversationLocked(ctx); err != nil {
			return nil, err
		}
	}

	limit := opts.MemoryLimit
	if limit <= 0 {
		limit = DefaultSleepMemoryLimit
	}
	recent, err := c.store.RecentMemories(ctx, limit)
	if err != nil {
		return nil, err
	}

	update, err := c.evolver.EvolveDreamstate(ctx, c.persona, recent)
	if err != nil {
		return nil, err
	}

	c.awake = false
	c.awakeCtx = nil

	c.logger.Info("asleep",
		"persona_id", c.persona.ID,
		"update_id", update.ID,
		"description", update.Description)
	return update, nil
}

// SearchMemories is stateless and available in any state. With tags it
// delegates to the store's tag search; without tags it falls back to plain
// recency retrieval. The query argument is reserved for a future analyzer
// and is currently unused beyond selecting that fallback.
func (c *Controller) SearchMemories(ctx context.Context, query string, tags []string, opts SearchOptions) ([]model.Memory, error) {
	_ = query
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if len(tags) > 0 {
		return c.store.SearchMemoriesByTags(ctx, tags, limit)
	}
	return c.store.RecentMemories(ctx, limit)
}

// AwakeningPrompt renders the current awakening context as text.
func (c *Controller) AwakeningPrompt() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.awake || c.awakeCtx == nil {
		return "", &errs.StateError{Op: "render awakening prompt", State: "asleep"}
	}
	return c.awakeCtx.Prompt(), nil
}

// Status reports the controller's current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		IsAwake:               c.awake,
		HasActiveConversation: c.conv != nil,
		ConversationID:        c.conversationIDLocked(),
	}
	if c.persona != nil {
		st.PersonaID = c.persona.ID
	}
	return st
}

func (c *Controller) conversationIDLocked() string {
	if c.conv == nil {
		return ""
	}
	return c.conv.ID
}
