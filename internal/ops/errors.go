package ops

import (
	"fmt"

	"github.com/roach88/erpsync/internal/model"
)

// InputError reports an invocation input rejected before any transport call.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Failure converts the error into the core failure shape.
func (e *InputError) Failure() *model.Failure {
	return &model.Failure{Message: e.Error(), Code: model.CodeInvalidInput}
}

// RequireID rejects an empty entity key.
func RequireID(id string) error {
	if id == "" {
		return &InputError{Field: "id", Reason: "must not be empty"}
	}
	return nil
}

// RequirePage rejects page or limit values below 1.
func RequirePage(page, limit int) error {
	if page < 1 {
		return &InputError{Field: "page", Reason: fmt.Sprintf("must be >= 1, got %d", page)}
	}
	if limit < 1 {
		return &InputError{Field: "limit", Reason: fmt.Sprintf("must be >= 1, got %d", limit)}
	}
	return nil
}
