// Package registry loads and indexes agent definitions. Definitions are
// markdown documents with YAML frontmatter; the registry is immutable after
// construction and replaced wholesale on reload, so the dispatch path reads
// it without locks.
package registry

import (
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// DefaultMaxTokens is applied when a definition omits max_tokens.
const DefaultMaxTokens = 2048

// Tier names with defined precedence. Numeric tiers sort after both.
const (
	TierCore   = "core"
	TierDomain = "domain"
)

// Definition is a single loaded agent definition. Definitions are
// constructed at load time and read-only afterwards.
type Definition struct {
	// ID is the globally unique key for the definition.
	ID string
	// Tier is the precedence class: "core", "domain", or a numeric tier
	// (lower sorts earlier).
	Tier string
	// Module groups related definitions; it is used for scoping, never for
	// matching.
	Module string
	// Triggers are case-insensitive phrases whose presence in input text
	// activates the definition.
	Triggers []string
	// AutoActivate allows activation via trigger match. When false the
	// definition only activates on explicit invocation.
	AutoActivate bool
	// Tools are the capability tokens the definition requests.
	Tools []string
	// MaxTokens caps this definition's contribution to a composed payload.
	MaxTokens int
	// Body is the knowledge content injected on activation.
	Body string
	// Path is the source file the definition was loaded from, when any.
	Path string
	// Warnings records non-fatal data-quality issues found at load time,
	// such as unknown capability tokens.
	Warnings []string
}

// validTier reports whether tier is "core", "domain", or a non-negative
// integer.
func validTier(tier string) bool {
	if tier == TierCore || tier == TierDomain {
		return true
	}
	n, err := strconv.Atoi(tier)
	return err == nil && n >= 0
}

// validate checks the construction invariants for a single definition.
// Cross-definition invariants (id uniqueness) are checked by the loader.
func (d *Definition) validate() error {
	var result *multierror.Error

	if d.ID == "" {
		result = multierror.Append(result, errors.New("missing id"))
	}
	if !validTier(d.Tier) {
		result = multierror.Append(result, errors.Errorf("invalid tier %q", d.Tier))
	}
	if d.AutoActivate && len(d.Triggers) == 0 {
		result = multierror.Append(result, errors.New("auto-activating definition has no triggers"))
	}
	if d.MaxTokens <= 0 {
		result = multierror.Append(result, errors.Errorf("max_tokens must be positive, got %d", d.MaxTokens))
	}

	return result.ErrorOrNil()
}
