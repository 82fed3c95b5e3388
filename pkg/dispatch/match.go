// Package dispatch implements the activation pipeline: trigger matching,
// priority resolution, budget-aware composition, and permission gating.
// Every stage is pure given a registry snapshot, so the pipeline is safe
// for concurrent use across requests.
package dispatch

import (
	"strings"

	"github.com/taskfleet/dispatch/pkg/registry"
)

// ScoreExplicit is the sentinel score for explicitly invoked definitions.
// It is higher than any trigger-derived score, so explicit invocations
// always outrank trigger matches.
const ScoreExplicit = 1 << 30

// Match pairs a definition with its trigger score for one request.
type Match struct {
	Def      *registry.Definition
	Score    int
	Explicit bool

	// order is the registry insertion index, the last-resort tie-break.
	order int
}

// normalize lowercases text and collapses runs of whitespace to single
// spaces, so trigger containment is case- and spacing-insensitive.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// match scores every definition against the request. The score is the
// count of distinct triggers found in the text; repeated occurrences of
// one trigger never double-count. Definitions with autoActivate=false only
// match via explicit invocation. The returned slice is in registry
// insertion order; Resolve applies the precedence ordering.
func match(reg *registry.Registry, invocation, text string) []Match {
	normalized := normalize(text)

	var matches []Match
	for i, def := range reg.All() {
		if invocation != "" && def.ID == invocation {
			matches = append(matches, Match{Def: def, Score: ScoreExplicit, Explicit: true, order: i})
			continue
		}

		if !def.AutoActivate {
			continue
		}

		score := 0
		for _, trigger := range def.Triggers {
			if strings.Contains(normalized, normalize(trigger)) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, Match{Def: def, Score: score, order: i})
		}
	}

	return matches
}
