package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskfleet/dispatch/pkg/alias"
	"github.com/taskfleet/dispatch/pkg/logger"
	"github.com/taskfleet/dispatch/pkg/registry"
	"github.com/taskfleet/dispatch/pkg/tokens"
)

// Activation reports one activated definition within a Result.
type Activation struct {
	ID        string `json:"id"`
	Score     int    `json:"score"`
	Explicit  bool   `json:"explicit"`
	Truncated bool   `json:"truncated"`
	Tokens    int    `json:"tokens"`
}

// Result is the outcome of one dispatch. Truncation, omission, no-match,
// and unknown explicit invocations are all normal outcomes reported as
// fields, never as errors, so callers branch on them without control-flow
// overhead.
type Result struct {
	RequestID         string       `json:"request_id"`
	Activated         []Activation `json:"activated"`
	Content           string       `json:"content"`
	Tools             []string     `json:"tools"`
	Omitted           []string     `json:"omitted,omitempty"`
	UnknownInvocation bool         `json:"unknown_invocation,omitempty"`
	NoMatch           bool         `json:"no_match,omitempty"`
}

// Dispatcher runs the activation pipeline against the registry snapshot
// held by its store. It keeps no per-request state and is safe for
// concurrent use.
type Dispatcher struct {
	store     *registry.Store
	aliases   *alias.Resolver
	counter   tokens.Counter
	maxActive int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAliases sets the alias resolver applied to explicit invocations
// before matching.
func WithAliases(r *alias.Resolver) Option {
	return func(d *Dispatcher) { d.aliases = r }
}

// WithCounter overrides the token counter used for composition. The
// default counts whitespace-delimited words.
func WithCounter(c tokens.Counter) Option {
	return func(d *Dispatcher) { d.counter = c }
}

// WithMaxActive overrides the activation cap (default DefaultMaxActive).
func WithMaxActive(n int) Option {
	return func(d *Dispatcher) { d.maxActive = n }
}

// New creates a Dispatcher reading snapshots from store.
func New(store *registry.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		aliases:   alias.NewResolver(nil),
		counter:   tokens.WordCounter{},
		maxActive: DefaultMaxActive,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Activate runs one request through the pipeline: alias resolution,
// trigger matching, priority resolution, budget-aware composition, and
// permission gating. invocation may be empty; budget is the global token
// budget for the composed content.
func (d *Dispatcher) Activate(ctx context.Context, invocation, text string, budget int) Result {
	result := Result{RequestID: uuid.NewString()}

	// Alias redirects run before matching so explicit-invocation matching
	// always sees canonical ids.
	canonical := invocation
	if invocation != "" {
		canonical, _ = d.aliases.Resolve(invocation)
	}

	reg := d.store.Current()

	if canonical != "" {
		if _, ok := reg.Lookup(canonical); !ok {
			result.UnknownInvocation = true
		}
	}

	resolved := resolve(match(reg, canonical, text), d.maxActive)
	composed := compose(resolved, budget, d.counter)

	for _, m := range composed.surviving {
		result.Activated = append(result.Activated, Activation{
			ID:        m.Def.ID,
			Score:     m.Score,
			Explicit:  m.Explicit,
			Truncated: composed.truncated[m.Def.ID],
			Tokens:    composed.counts[m.Def.ID],
		})
	}
	result.Content = composed.content
	result.Omitted = composed.omitted

	survivingDefs := make([]*registry.Definition, len(composed.surviving))
	for i, m := range composed.surviving {
		survivingDefs[i] = m.Def
	}
	result.Tools = granted(ctx, survivingDefs)

	result.NoMatch = len(result.Activated) == 0 && len(result.Omitted) == 0

	logger.G(ctx).WithFields(map[string]interface{}{
		"request_id": result.RequestID,
		"invocation": canonical,
		"activated":  len(result.Activated),
		"omitted":    len(result.Omitted),
		"no_match":   result.NoMatch,
	}).Debug("dispatch complete")

	return result
}
