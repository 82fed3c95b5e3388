package dispatch

import (
	"strings"

	"github.com/taskfleet/dispatch/pkg/tokens"
)

// composition is the outcome of budget-aware assembly for one request.
type composition struct {
	content   string
	truncated map[string]bool
	counts    map[string]int
	omitted   []string
	surviving []Match
}

// compose walks the resolved list in order, appending each definition's
// body without exceeding min(def.MaxTokens, remaining global budget)
// tokens for that definition. Content that does not fit its allowance is
// truncated at a whitespace boundary and flagged; a definition whose
// allowance is exhausted (or whose first word does not fit) is omitted
// entirely and reported separately, never partially included.
//
// Bodies are joined with a blank line; the separator is not charged
// against any budget. Identical inputs always produce byte-identical
// output.
func compose(resolved []Match, budget int, counter tokens.Counter) composition {
	out := composition{
		truncated: make(map[string]bool, len(resolved)),
		counts:    make(map[string]int, len(resolved)),
	}

	var parts []string
	remaining := budget

	for _, m := range resolved {
		allowance := m.Def.MaxTokens
		if remaining < allowance {
			allowance = remaining
		}
		if allowance <= 0 {
			out.omitted = append(out.omitted, m.Def.ID)
			continue
		}

		text, cut := tokens.Truncate(m.Def.Body, allowance, counter)
		if text == "" && m.Def.Body != "" {
			out.omitted = append(out.omitted, m.Def.ID)
			continue
		}

		used := counter.Count(text)
		remaining -= used

		parts = append(parts, text)
		out.truncated[m.Def.ID] = cut
		out.counts[m.Def.ID] = used
		out.surviving = append(out.surviving, m)
	}

	out.content = strings.Join(parts, "\n\n")
	return out
}
