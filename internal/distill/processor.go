package distill

import (
	"context"
	"log/slog"
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/errs"
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// MemoryWriter persists derived memories.
type MemoryWriter interface {
	PutMemory(ctx context.Context, m *model.Memory) error
}

// Processor turns closed conversations into persisted memory records.
type Processor struct {
	memories MemoryWriter
	analyzer Analyzer
	logger   *slog.Logger
}

// NewProcessor builds a Processor. A nil analyzer falls back to Heuristic;
// a nil logger falls back to slog.Default.
func NewProcessor(memories MemoryWriter, analyzer Analyzer, logger *slog.Logger) *Processor {
	if analyzer == nil {
		analyzer = Heuristic{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{memories: memories, analyzer: analyzer, logger: logger}
}

// ProcessConversation derives a memory from the conversation and persists
// it. The conversation must already be closed by the caller.
func (p *Processor) ProcessConversation(ctx context.Context, conv *model.Conversation, opts Options) (*model.Memory, error) {
	if conv == nil {
		return nil, errs.Validation("conversation", "must not be nil")
	}

	a, err := p.analyzer.Analyze(conv, opts)
	if err != nil {
		return nil, err
	}

	mem := &model.Memory{
		ConversationID: conv.ID,
		Summary:        a.Summary,
		Importance:     model.ClampImportance(a.Importance),
		Tags:           model.DedupTags(a.Tags),
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.memories.PutMemory(ctx, mem); err != nil {
		return nil, err
	}

	p.logger.Debug("conversation distilled",
		"conversation_id", conv.ID,
		"memory_id", mem.ID,
		"importance", mem.Importance,
		"tags", len(mem.Tags))
	return mem, nil
}
