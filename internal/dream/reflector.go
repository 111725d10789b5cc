// Package dream evolves the persona from accumulated memories. The default
// Reflector applies a fixed deterministic rule set; an intelligent
// implementation can be substituted without touching the lifecycle
// contract.
package dream

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// highImportanceFloor marks memories that count as formative experiences.
const highImportanceFloor = 8

// Changes is the delta set a reflection proposes. Trait and value entries
// are absolute new values (already clamped); BiographyAppend is a sentence
// added to the biography.
type Changes struct {
	Traits          map[string]float64
	Values          map[string]float64
	Preferences     map[string]string
	BiographyAppend string
	Description     string
	Justification   string
}

// Empty reports whether the reflection proposes no persona mutation.
func (c Changes) Empty() bool {
	return len(c.Traits) == 0 && len(c.Values) == 0 && len(c.Preferences) == 0 && c.BiographyAppend == ""
}

// Reflector derives persona changes from recent memories.
type Reflector interface {
	Reflect(p *model.Persona, memories []model.Memory) (Changes, error)
}

// Heuristic is the default deterministic Reflector.
type Heuristic struct{}

// Reflect applies the rule set:
//   - any high-importance memory and conscientiousness < 0.9: +0.05, cap 1.0
//   - top tags include error/problem and neuroticism < 0.8: +0.03, cap 0.8
//   - top tags include solution/help: agreeableness +0.02 cap 0.95 when
//     below it, and helpfulness +0.01 cap 1.0
//   - any high-importance memory: biography sentence from the first one's
//     lowercased summary
func (Heuristic) Reflect(p *model.Persona, memories []model.Memory) (Changes, error) {
	ch := Changes{
		Traits:      map[string]float64{},
		Values:      map[string]float64{},
		Preferences: map[string]string{},
	}
	if len(memories) == 0 {
		ch.Description = "no changes made"
		ch.Justification = "no recent memories to process"
		return ch, nil
	}

	var high []model.Memory
	for _, m := range memories {
		if m.Importance >= highImportanceFloor {
			high = append(high, m)
		}
	}
	top := topTags(memories, 3)

	var applied []string
	if len(high) > 0 {
		if c := p.Traits["conscientiousness"]; c < 0.9 {
			ch.Traits["conscientiousness"] = capAt(c+0.05, 1.0)
			applied = append(applied, "increased conscientiousness")
		}
	}
	if containsAny(top, "error", "problem") {
		if n := p.Traits["neuroticism"]; n < 0.8 {
			ch.Traits["neuroticism"] = capAt(n+0.03, 0.8)
			applied = append(applied, "increased neuroticism")
		}
	}
	if containsAny(top, "solution", "help") {
		if a := p.Traits["agreeableness"]; a < 0.95 {
			ch.Traits["agreeableness"] = capAt(a+0.02, 0.95)
			applied = append(applied, "increased agreeableness")
		}
		ch.Values["helpfulness"] = capAt(p.Values["helpfulness"]+0.01, 1.0)
		applied = append(applied, "reinforced helpfulness")
	}
	if len(high) > 0 {
		ch.BiographyAppend = fmt.Sprintf(
			"In my dreams I revisited a significant experience: %s",
			strings.ToLower(high[0].Summary))
		applied = append(applied, "extended biography")
	}

	if len(applied) == 0 {
		ch.Description = "no changes made"
	} else {
		ch.Description = strings.Join(applied, "; ")
	}

	just := fmt.Sprintf("processed %d recent memories", len(memories))
	if len(high) > 0 {
		just += fmt.Sprintf(", %d of high importance", len(high))
	}
	ch.Justification = just
	return ch, nil
}

// topTags returns the n most frequent tags across all memories, ties
// broken by first-seen order.
func topTags(memories []model.Memory, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, m := range memories {
		for _, t := range m.Tags {
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func containsAny(tags []string, wanted ...string) bool {
	for _, t := range tags {
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}

func capAt(v, ceiling float64) float64 {
	if v > ceiling {
		return ceiling
	}
	return v
}
