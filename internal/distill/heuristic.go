package distill

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// tagKeywords are promoted to tags when found (case-insensitively) in a
// summary.
var tagKeywords = []string{
	"help", "question", "problem", "solution", "error", "fix", "learn",
	"code", "program", "software", "data", "api", "file", "system",
	"request", "information", "explain", "understand", "create", "build",
}

// Heuristic is the default deterministic Analyzer.
type Heuristic struct{}

// Analyze derives summary, importance and tags from the conversation.
func (Heuristic) Analyze(conv *model.Conversation, opts Options) (Analysis, error) {
	raw := conv.RawText()
	summary := summarize(conv, raw, opts.maxSummaryLength())
	return Analysis{
		Summary:    summary,
		Importance: scoreImportance(conv, raw),
		Tags:       deriveTags(conv, summary),
	}, nil
}

// summarize takes the leading maxLen characters of the transcript, backing
// off to the last whitespace boundary before the cut so no word is split,
// and appends an ellipsis marker. An empty transcript gets a synthesized
// summary from participants and duration.
func summarize(conv *model.Conversation, raw string, maxLen int) string {
	if len(raw) == 0 {
		names := strings.Join(conv.Participants, ", ")
		if d, ok := conv.Duration(); ok {
			return fmt.Sprintf("Conversation with %s lasting %d minutes", names, int(d.Minutes()))
		}
		return fmt.Sprintf("Conversation with %s", names)
	}
	if utf8.RuneCountInString(raw) <= maxLen {
		return raw
	}
	// maxLen counts characters, not bytes; cutting on runes keeps the
	// summary valid UTF-8 even when no whitespace precedes the cut.
	cut := string([]rune(raw)[:maxLen])
	if i := strings.LastIndexAny(cut, " \t\n"); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// scoreImportance starts at 5 and adds up to 2 for duration (1 per ten
// minutes), 1 for more than two participants and 1 for transcripts over
// 1000 characters, clamped to the valid range.
func scoreImportance(conv *model.Conversation, raw string) int {
	score := 5
	if d, ok := conv.Duration(); ok {
		bonus := int(d.Minutes()) / 10
		if bonus > 2 {
			bonus = 2
		}
		score += bonus
	}
	if len(conv.Participants) > 2 {
		score++
	}
	if len(raw) > 1000 {
		score++
	}
	return model.ClampImportance(score)
}

// deriveTags unions participants, the conversation's start date and any
// keyword found in the summary, deduplicated in first-seen order.
func deriveTags(conv *model.Conversation, summary string) []string {
	tags := append([]string(nil), conv.Participants...)
	tags = append(tags, conv.StartedAt.UTC().Format("2006-01-02"))

	lower := strings.ToLower(summary)
	for _, kw := range tagKeywords {
		if strings.Contains(lower, kw) {
			tags = append(tags, kw)
		}
	}
	return model.DedupTags(tags)
}
