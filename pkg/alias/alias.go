// Package alias maps deprecated invocation names to their canonical
// replacements before dispatch, optionally rewriting arguments (a retired
// subcommand may map to a canonical command plus an injected flag). A
// lookup miss returns the input unchanged: most invocation names are not
// aliases.
package alias

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RewriteFunc transforms the arguments of a deprecated invocation into the
// arguments expected by its canonical form.
type RewriteFunc func(args []string) []string

// Identity returns its arguments unchanged; it is the rewrite for
// non-alias names.
func Identity(args []string) []string { return args }

// Rule describes a single alias: the canonical name and the arguments to
// prepend when rewriting.
type Rule struct {
	Canonical  string   `yaml:"canonical"`
	InjectArgs []string `yaml:"inject_args,omitempty"`
}

// Resolver resolves deprecated invocation names. The rule table is fixed
// after construction, so Resolve is safe for concurrent use.
type Resolver struct {
	rules map[string]Rule
}

// NewResolver creates a resolver from a static rule table.
func NewResolver(rules map[string]Rule) *Resolver {
	table := make(map[string]Rule, len(rules))
	for name, rule := range rules {
		table[name] = rule
	}
	return &Resolver{rules: table}
}

// LoadRules reads an alias rule table from a YAML file of the form:
//
//	aliases:
//	  old-cmd:
//	    canonical: new-cmd
//	    inject_args: ["--legacy"]
func LoadRules(path string) (map[string]Rule, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read alias rules %s", path)
	}

	var doc struct {
		Aliases map[string]Rule `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse alias rules %s", path)
	}

	for name, rule := range doc.Aliases {
		if rule.Canonical == "" {
			return nil, errors.Errorf("alias %q has no canonical name", name)
		}
	}

	return doc.Aliases, nil
}

// Resolve maps name to its canonical form and argument rewrite. Non-alias
// names come back unchanged with an identity rewrite.
func (r *Resolver) Resolve(name string) (string, RewriteFunc) {
	rule, ok := r.rules[name]
	if !ok {
		return name, Identity
	}

	inject := rule.InjectArgs
	return rule.Canonical, func(args []string) []string {
		rewritten := make([]string, 0, len(inject)+len(args))
		rewritten = append(rewritten, inject...)
		rewritten = append(rewritten, args...)
		return rewritten
	}
}

// IsAlias reports whether name is a registered alias.
func (r *Resolver) IsAlias(name string) bool {
	_, ok := r.rules[name]
	return ok
}
