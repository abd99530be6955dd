// Package domainerr defines the error taxonomy shared by the clinic
// aggregates. Every lifecycle violation maps to exactly one Kind so that
// handlers can translate failures to transport codes without string matching.
package domainerr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	// InvalidArgument marks a malformed or out-of-range scalar, e.g. a
	// negative duration or an empty required field.
	InvalidArgument Kind = iota
	// InvalidState marks an operation not allowed in the current lifecycle
	// state, e.g. finalizing an already finalized record.
	InvalidState
	// Incomplete marks a finalize-time completeness failure; the error
	// carries the full list of missing items.
	Incomplete
	// NotFound marks an aggregate id that does not resolve.
	NotFound
	// Conflict marks a delete blocked by related data or a uniqueness
	// violation surfacing from storage.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case InvalidState:
		return "invalid_state"
	case Incomplete:
		return "incomplete"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by aggregate methods and services.
type Error struct {
	Kind    Kind
	Message string
	// Missing lists the completeness items a finalize failed on. Only set
	// when Kind is Incomplete.
	Missing []string
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing %s", e.Message, strings.Join(e.Missing, ", "))
	}
	return e.Message
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgumentf(format string, args ...interface{}) *Error {
	return New(InvalidArgument, format, args...)
}

func InvalidStatef(format string, args ...interface{}) *Error {
	return New(InvalidState, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(Conflict, format, args...)
}

// Incompletef builds an Incomplete error listing every missing item.
func Incompletef(missing []string, format string, args ...interface{}) *Error {
	return &Error{Kind: Incomplete, Message: fmt.Sprintf(format, args...), Missing: missing}
}

// KindOf extracts the Kind from err, or ok=false when err is not a domain
// error.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps a domain error to the status code the API surface uses.
// Non-domain errors map to 500.
func HTTPStatus(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch k {
	case InvalidArgument:
		return http.StatusBadRequest
	case InvalidState, Incomplete:
		return http.StatusUnprocessableEntity
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
