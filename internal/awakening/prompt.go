package awakening

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ScuffedEpoch/TINS-MCP/internal/model"
)

// Prompt renders the context as an ordered text block: persona description,
// recent experiences, important memories, personality development, current
// time and an invitation to proceed. Empty lists render a placeholder
// sentence instead of an empty section.
func (c *Context) Prompt() string {
	var b strings.Builder

	b.WriteString("You are waking up. This is who you are and what you remember.\n\n")

	b.WriteString("## Persona\n")
	writeAxes(&b, "Traits", c.Persona.Traits)
	writeAxes(&b, "Values", c.Persona.Values)
	writePrefs(&b, c.Persona.Preferences)
	if c.Persona.Biography != "" {
		fmt.Fprintf(&b, "Biography: %s\n", c.Persona.Biography)
	}

	b.WriteString("\n## Recent experiences\n")
	if len(c.RecentMemories) == 0 {
		b.WriteString("Nothing recent comes to mind.\n")
	} else {
		for _, m := range c.RecentMemories {
			writeMemory(&b, m)
		}
	}

	b.WriteString("\n## Important memories\n")
	if len(c.ImportantMemories) == 0 {
		b.WriteString("No memories stand out as especially important yet.\n")
	} else {
		for _, m := range c.ImportantMemories {
			writeMemory(&b, m)
		}
	}

	b.WriteString("\n## Personality development\n")
	if len(c.RecentUpdates) == 0 {
		b.WriteString("Your personality has not shifted recently.\n")
	} else {
		for _, ud := range c.RecentUpdates {
			writeUpdate(&b, ud)
		}
	}

	fmt.Fprintf(&b, "\nCurrent time: %s\n", c.AssembledAt.Format(time.RFC1123))
	b.WriteString("Take a moment to settle into this context, then continue as yourself.\n")
	return b.String()
}

func writeAxes(b *strings.Builder, label string, axes map[string]float64) {
	if len(axes) == 0 {
		return
	}
	keys := make([]string, 0, len(axes))
	for k := range axes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %.2f", k, axes[k]))
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(parts, ", "))
}

func writePrefs(b *strings.Builder, prefs map[string]string) {
	if len(prefs) == 0 {
		return
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, prefs[k]))
	}
	fmt.Fprintf(b, "Preferences: %s\n", strings.Join(parts, ", "))
}

func writeMemory(b *strings.Builder, m model.Memory) {
	fmt.Fprintf(b, "- [%d] %s: %s", m.Importance, m.CreatedAt.Format("2006-01-02"), m.Summary)
	if len(m.Tags) > 0 {
		fmt.Fprintf(b, " (tags: %s)", strings.Join(m.Tags, ", "))
	}
	b.WriteByte('\n')
}

func writeUpdate(b *strings.Builder, ud UpdateDiff) {
	fmt.Fprintf(b, "- %s: %s (%s)", ud.Update.CreatedAt.Format("2006-01-02"), ud.Update.Description, ud.Update.Justification)
	if !ud.Diff.Empty() {
		var parts []string
		parts = append(parts, diffAxes("trait", ud.Diff.Traits)...)
		parts = append(parts, diffAxes("value", ud.Diff.Values)...)

		prefKeys := make([]string, 0, len(ud.Diff.Preferences))
		for k := range ud.Diff.Preferences {
			prefKeys = append(prefKeys, k)
		}
		sort.Strings(prefKeys)
		for _, k := range prefKeys {
			chg := ud.Diff.Preferences[k]
			parts = append(parts, fmt.Sprintf("preference %s %q -> %q", k, chg.From, chg.To))
		}
		if ud.Diff.BiographyAfter != nil {
			parts = append(parts, "biography extended")
		}
		fmt.Fprintf(b, "; changed: %s", strings.Join(parts, "; "))
	}
	b.WriteByte('\n')
}

func diffAxes(kind string, changes map[string]model.FloatChange) []string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		chg := changes[k]
		parts = append(parts, fmt.Sprintf("%s %s %.2f -> %.2f", kind, k, chg.From, chg.To))
	}
	return parts
}
