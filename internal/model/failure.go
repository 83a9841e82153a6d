package model

import (
	"errors"
	"fmt"
)

// Failure codes produced by the client itself. Codes supplied by the
// server are carried through verbatim.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeUnreachable       = "UNREACHABLE"
	CodeSessionStore      = "SESSION_STORE"
)

// Failure is the single failure shape of the core: a human-readable message
// and, when available, a server-supplied code and HTTP status.
//
// "Not found" and "network unreachable" both collapse into a Failure; the
// core does not distinguish them.
type Failure struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	switch {
	case f.Code != "" && f.Status != 0:
		return fmt.Sprintf("%s (code=%s, status=%d)", f.Message, f.Code, f.Status)
	case f.Code != "":
		return fmt.Sprintf("%s (code=%s)", f.Message, f.Code)
	case f.Status != 0:
		return fmt.Sprintf("%s (status=%d)", f.Message, f.Status)
	default:
		return f.Message
	}
}

// AsFailure converts any error into a Failure.
// Uses errors.As to preserve a wrapped Failure; other errors keep their
// message and get the given fallback code.
func AsFailure(err error, code string) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Message: err.Error(), Code: code}
}
