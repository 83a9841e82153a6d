package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/erpsync/internal/model"
)

// ErrStopped is returned by Dispatch when the engine stopped before the
// event could be applied.
var ErrStopped = errors.New("engine stopped")

// UnknownResourceError is returned by Dispatch for an event whose resource
// has no registered store.
type UnknownResourceError struct {
	Resource model.Resource
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("no store registered for resource %q", e.Resource)
}

// IsStopped reports whether err means the engine was not running.
// Uses errors.Is to handle wrapped errors.
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}
