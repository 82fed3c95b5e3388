// Package capability defines the fixed vocabulary of tool capability tokens
// that agent definitions may request. The vocabulary is versioned: content
// written against a newer vocabulary loads with warnings rather than
// failing, so older dispatchers tolerate forward-compatible definitions.
package capability

import "sort"

// VocabularyVersion identifies the capability vocabulary this build
// validates against.
const VocabularyVersion = "v1"

// Capability tokens in vocabulary v1.
const (
	Read     = "read"
	Write    = "write"
	Edit     = "edit"
	Bash     = "bash"
	Grep     = "grep"
	Glob     = "glob"
	WebFetch = "web_fetch"
)

var vocabulary = map[string]struct{}{
	Read:     {},
	Write:    {},
	Edit:     {},
	Bash:     {},
	Grep:     {},
	Glob:     {},
	WebFetch: {},
}

// Known reports whether token is part of the current vocabulary.
func Known(token string) bool {
	_, ok := vocabulary[token]
	return ok
}

// All returns the vocabulary tokens in sorted order.
func All() []string {
	tokens := make([]string, 0, len(vocabulary))
	for token := range vocabulary {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Filter splits tokens into those present in the vocabulary and those
// unknown to it. Order is preserved and duplicates are collapsed.
func Filter(tokens []string) (known, unknown []string) {
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if Known(token) {
			known = append(known, token)
		} else {
			unknown = append(unknown, token)
		}
	}
	return known, unknown
}
