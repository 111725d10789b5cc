package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
	"github.com/ScuffedEpoch/TINS-MCP/internal/store"
)

func newTestController(t *testing.T) (*Controller, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s, nil, nil, logger), s
}

func TestInitializeCreatesDefaultPersona(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	require.NoError(t, c.Initialize(ctx))

	p, err := s.CurrentPersona(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, p.Traits["conscientiousness"], 1e-9)

	// Initialize again: still exactly one persona.
	require.NoError(t, c.Initialize(ctx))
	st, _ := s.Stats(ctx, "")
	assert.Equal(t, 1, st.Personas)
}

func TestAwakenOpensConversation(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	awakeCtx, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	require.NotNil(t, awakeCtx)
	assert.NotNil(t, awakeCtx.Persona)

	status := c.Status()
	assert.True(t, status.IsAwake)
	assert.True(t, status.HasActiveConversation)
	assert.NotEmpty(t, status.ConversationID)

	open, err := s.OpenConversation(ctx)
	require.NoError(t, err)
	assert.Equal(t, status.ConversationID, open.ID)
	assert.Equal(t, []string{"user", "assistant"}, open.Participants)
}

func TestAwakenTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	first, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	firstConv := c.Status().ConversationID

	second, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	assert.Same(t, first, second, "existing context returned unchanged")
	assert.Equal(t, firstConv, c.Status().ConversationID, "no second conversation opened")

	st, _ := s.Stats(ctx, "")
	assert.Equal(t, 1, st.Conversations)
}

func TestAwakenRecoversDanglingConversation(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	first := New(s, nil, nil, logger)
	_, err = first.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	_, err = first.RecordMessage(ctx, "user", "the process died before sleeping")
	require.NoError(t, err)
	danglingID := first.Status().ConversationID

	// Simulate a crash: no EndConversation, no Sleep, reopen the db.
	require.NoError(t, s.Close())
	s, err = store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	second := New(s, nil, nil, logger)
	awakeCtx, err := second.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)

	st, err := s.Stats(ctx, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Conversations)
	assert.Equal(t, 1, st.OpenConversations, "only the new conversation may be open")

	recovered, err := s.GetConversation(ctx, danglingID)
	require.NoError(t, err)
	assert.NotNil(t, recovered.EndedAt)

	// The dangling conversation was distilled, and its memory is already
	// part of the fresh awakening context.
	memories, err := s.RecentMemories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, danglingID, memories[0].ConversationID)
	assert.Contains(t, memories[0].Summary, "the process died before sleeping")
	require.Len(t, awakeCtx.RecentMemories, 1)
	assert.Equal(t, danglingID, awakeCtx.RecentMemories[0].ConversationID)
}

func TestRecordMessageRequiresAwake(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t)

	_, err := c.RecordMessage(ctx, "user", "hello")
	require.Error(t, err)
	assert.True(t, errs.IsState(err))

	_, err = c.RecordMessage(ctx, "", "hello")
	assert.True(t, errs.IsValidation(err))
	_, err = c.RecordMessage(ctx, "user", "")
	assert.True(t, errs.IsValidation(err))
}

func TestRecordMessagePersists(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	_, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)

	conv, err := c.RecordMessage(ctx, "user", "hello")
	require.NoError(t, err)
	conv, err = c.RecordMessage(ctx, "assistant", "hi, how can I help?")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)

	stored, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, "user: hello\nassistant: hi, how can I help?", stored.RawText())
}

func TestEndConversationDistills(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	_, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	convID := c.Status().ConversationID

	_, err = c.RecordMessage(ctx, "user", "please help me fix an error")
	require.NoError(t, err)

	mem, err := c.EndConversation(ctx)
	require.NoError(t, err)
	require.NotNil(t, mem)

	assert.Equal(t, convID, mem.ConversationID)
	assert.GreaterOrEqual(t, mem.Importance, model.MinImportance)
	assert.LessOrEqual(t, mem.Importance, model.MaxImportance)
	assert.Contains(t, mem.Tags, "help")
	assert.Contains(t, mem.Tags, "error")

	// Source conversation was closed before the memory was produced.
	stored, err := s.GetConversation(ctx, convID)
	require.NoError(t, err)
	require.NotNil(t, stored.EndedAt)
	assert.False(t, mem.CreatedAt.Before(*stored.EndedAt))

	status := c.Status()
	assert.True(t, status.IsAwake, "ending a conversation does not sleep")
	assert.False(t, status.HasActiveConversation)
}

func TestEndConversationNoOpWhenNoneOpen(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t)

	mem, err := c.EndConversation(ctx)
	require.NoError(t, err, "forgiving no-op must not error")
	assert.Nil(t, mem)
}

func TestSleepClosesOpenConversation(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	_, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	_, err = c.RecordMessage(ctx, "user", "remember this")
	require.NoError(t, err)

	update, err := c.Sleep(ctx, SleepOptions{})
	require.NoError(t, err)
	require.NotNil(t, update)

	status := c.Status()
	assert.False(t, status.IsAwake)
	assert.False(t, status.HasActiveConversation)

	// The recorded conversation was distilled into a memory.
	memories, err := s.RecentMemories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0].Summary, "remember this")

	// No dangling open conversation survives the transition.
	_, err = s.OpenConversation(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSleepWhileAsleepIsNoOp(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t)

	update, err := c.Sleep(ctx, SleepOptions{})
	require.NoError(t, err)
	assert.Nil(t, update)
}

func TestSleepEvolvesPersona(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	require.NoError(t, c.Initialize(ctx))

	// One memory of importance 9 already in the store: after one sleep
	// conscientiousness rises by exactly 0.05.
	require.NoError(t, s.PutMemory(ctx, &model.Memory{
		Summary: "Shipped The Big Fix", Importance: 9, CreatedAt: time.Now().UTC(),
	}))

	_, err := c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)
	update, err := c.Sleep(ctx, SleepOptions{})
	require.NoError(t, err)
	require.NotNil(t, update)

	p, err := s.CurrentPersona(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, p.Traits["conscientiousness"], 1e-9)
	assert.Contains(t, p.Biography, "shipped the big fix")

	assert.InDelta(t, 0.8, update.Previous.Traits["conscientiousness"], 1e-9)
	assert.InDelta(t, 0.85, update.New.Traits["conscientiousness"], 1e-9)
	assert.Contains(t, update.Justification, "of high importance")
}

func TestDreamstateChainConsistency(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	for i := 0; i < 3; i++ {
		_, err := c.Awaken(ctx, AwakenOptions{})
		require.NoError(t, err)
		_, err = c.RecordMessage(ctx, "user", "an important solution that helped a lot")
		require.NoError(t, err)
		_, err = c.Sleep(ctx, SleepOptions{})
		require.NoError(t, err)
	}

	updates, err := s.RecentUpdates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	// Newest first: each update's previous state equals the next-older
	// update's new state.
	for i := 0; i+1 < len(updates); i++ {
		assert.Equal(t, updates[i+1].New, updates[i].Previous)
	}
}

func TestSearchMemoriesFallsBackToRecency(t *testing.T) {
	ctx := context.Background()
	c, s := newTestController(t)

	require.NoError(t, s.PutMemory(ctx, &model.Memory{
		Summary: "tagged", Importance: 5, Tags: []string{"help"},
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}))
	require.NoError(t, s.PutMemory(ctx, &model.Memory{
		Summary: "untagged", Importance: 5, CreatedAt: time.Now().UTC(),
	}))

	// Tags given: only tag matches come back, in any state.
	got, err := c.SearchMemories(ctx, "whatever", []string{"help"}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tagged", got[0].Summary)

	// No tags: the query text is not matched, plain recency instead.
	got, err = c.SearchMemories(ctx, "tagged", nil, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "untagged", got[0].Summary)
}

func TestAwakeningPromptRequiresAwake(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t)

	_, err := c.AwakeningPrompt()
	require.Error(t, err)
	assert.True(t, errs.IsState(err))

	_, err = c.Awaken(ctx, AwakenOptions{})
	require.NoError(t, err)

	prompt, err := c.AwakeningPrompt()
	require.NoError(t, err)
	assert.Contains(t, prompt, "## Persona")
}
