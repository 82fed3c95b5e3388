package dispatch

import (
	"context"
	"sort"

	"github.com/taskfleet/dispatch/pkg/capability"
	"github.com/taskfleet/dispatch/pkg/logger"
	"github.com/taskfleet/dispatch/pkg/registry"
)

// granted computes the effective capability set: the union of tools across
// definitions whose content was actually delivered. Omitted definitions
// contribute nothing — a capability is only exercised if its justifying
// content reached the caller.
//
// Tokens outside the vocabulary are dropped and logged as data-quality
// warnings; the loader already filters file-sourced definitions, so this
// only fires for programmatically built registries. The result is sorted
// for determinism.
func granted(ctx context.Context, surviving []*registry.Definition) []string {
	union := make(map[string]struct{})

	for _, def := range surviving {
		known, unknown := capability.Filter(def.Tools)
		for _, token := range unknown {
			logger.G(ctx).WithFields(map[string]interface{}{
				"definition": def.ID,
				"token":      token,
			}).Warn("dropping capability token outside vocabulary")
		}
		for _, token := range known {
			union[token] = struct{}{}
		}
	}

	tools := make([]string, 0, len(union))
	for token := range union {
		tools = append(tools, token)
	}
	sort.Strings(tools)
	return tools
}
