package dispatch

import (
	"sort"
	"strconv"

	"github.com/taskfleet/dispatch/pkg/registry"
)

// DefaultMaxActive bounds how many definitions activate per request.
// Excess matches are dropped, not merged: a small cap keeps the composed
// payload focused and stops broad matches from diluting specific ones.
const DefaultMaxActive = 3

// Tier precedence classes. Within tierNumeric, the numeric value orders
// definitions; the other classes carry no secondary value.
const (
	tierCore = iota
	tierDomain
	tierNumeric
	tierUnknown
)

// tierRank maps a tier name onto its precedence class and numeric value.
// Unknown tiers sort last rather than failing: the loader rejects them, but
// programmatically built registries may carry tiers this version does not
// know.
func tierRank(tier string) (class int, value int) {
	switch tier {
	case registry.TierCore:
		return tierCore, 0
	case registry.TierDomain:
		return tierDomain, 0
	}
	if n, err := strconv.Atoi(tier); err == nil && n >= 0 {
		return tierNumeric, n
	}
	return tierUnknown, 0
}

// resolve orders matches by the activation precedence key and truncates to
// maxActive. The key, in order: explicit invocation first, tier rank
// ascending, score descending, registry insertion order. The sort is
// stable, so equal keys keep insertion order and results are reproducible
// across runs.
func resolve(matches []Match, maxActive int) []Match {
	resolved := make([]Match, len(matches))
	copy(resolved, matches)

	sort.SliceStable(resolved, func(i, j int) bool {
		a, b := resolved[i], resolved[j]
		if a.Explicit != b.Explicit {
			return a.Explicit
		}
		aClass, aValue := tierRank(a.Def.Tier)
		bClass, bValue := tierRank(b.Def.Tier)
		if aClass != bClass {
			return aClass < bClass
		}
		if aValue != bValue {
			return aValue < bValue
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.order < b.order
	})

	if maxActive > 0 && len(resolved) > maxActive {
		resolved = resolved[:maxActive]
	}
	return resolved
}
