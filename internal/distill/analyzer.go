// Package distill derives memory records from closed conversations. The
// default Analyzer is a deterministic heuristic; an intelligent analyzer
// can be substituted without touching the lifecycle contract.
package distill

import (
	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// DefaultMaxSummaryLength bounds summaries when no option is given.
const DefaultMaxSummaryLength = 500

// Options tunes analysis.
type Options struct {
	// MaxSummaryLength caps the summary; 0 means DefaultMaxSummaryLength.
	MaxSummaryLength int
}

func (o Options) maxSummaryLength() int {
	if o.MaxSummaryLength <= 0 {
		return DefaultMaxSummaryLength
	}
	return o.MaxSummaryLength
}

// Analysis is the derived content of a memory.
type Analysis struct {
	Summary    string
	Importance int
	Tags       []string
}

// Analyzer derives a memory's content from a conversation.
type Analyzer interface {
	Analyze(conv *model.Conversation, opts Options) (Analysis, error)
}
