package registry

import (
	"fmt"

	"github.com/pkg/errors"
)

// MalformedDefinitionError reports structural or validation failures found
// while loading a batch of definitions. The whole load aborts on the first
// bad batch; every failure in the batch is aggregated so operators see all
// problems at once. The previous registry, if any, stays active.
type MalformedDefinitionError struct {
	// Err aggregates the individual validation failures.
	Err error
}

func (e *MalformedDefinitionError) Error() string {
	return fmt.Sprintf("malformed agent definitions: %v", e.Err)
}

func (e *MalformedDefinitionError) Unwrap() error {
	return e.Err
}

// IsMalformedDefinition reports whether err is (or wraps) a
// MalformedDefinitionError.
func IsMalformedDefinition(err error) bool {
	var target *MalformedDefinitionError
	return errors.As(err, &target)
}
