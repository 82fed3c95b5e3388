package registry

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Registry is an immutable index of agent definitions. It is safe for
// concurrent use without locks because nothing mutates it after New
// returns.
type Registry struct {
	defs []*Definition
	byID map[string]*Definition
}

// New builds a registry from already-constructed definitions, validating
// each and enforcing id uniqueness. All failures are aggregated into a
// single MalformedDefinitionError.
func New(defs ...*Definition) (*Registry, error) {
	var buildErrs *multierror.Error

	byID := make(map[string]*Definition, len(defs))
	for _, def := range defs {
		if err := def.validate(); err != nil {
			buildErrs = multierror.Append(buildErrs, errors.Wrapf(err, "definition %q", def.ID))
			continue
		}
		if _, dup := byID[def.ID]; dup {
			buildErrs = multierror.Append(buildErrs, errors.Errorf("duplicate id %q", def.ID))
			continue
		}
		byID[def.ID] = def
	}

	if err := buildErrs.ErrorOrNil(); err != nil {
		return nil, &MalformedDefinitionError{Err: err}
	}

	return &Registry{defs: defs, byID: byID}, nil
}

// Lookup returns the definition with the given id.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	def, ok := r.byID[id]
	return def, ok
}

// All returns the definitions in insertion order. Callers must not modify
// the returned slice or its elements.
func (r *Registry) All() []*Definition {
	return r.defs
}

// Len returns the number of definitions in the registry.
func (r *Registry) Len() int {
	return len(r.defs)
}
