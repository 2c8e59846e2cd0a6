package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	NotFound              Kind = "not_found"
	ValidationFailed      Kind = "validation_failed"
	DependencyUnavailable Kind = "dependency_unavailable"
	Conflict              Kind = "conflict"
	Forbidden             Kind = "forbidden"
)

// Error is a classified engine failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFoundf(op, format string, args ...interface{}) *Error {
	return New(NotFound, op, fmt.Errorf(format, args...))
}

func Validationf(op, format string, args ...interface{}) *Error {
	return New(ValidationFailed, op, fmt.Errorf(format, args...))
}

func Forbiddenf(op, format string, args ...interface{}) *Error {
	return New(Forbidden, op, fmt.Errorf(format, args...))
}

func Conflictf(op, format string, args ...interface{}) *Error {
	return New(Conflict, op, fmt.Errorf(format, args...))
}

func Unavailable(op string, err error) *Error {
	return New(DependencyUnavailable, op, err)
}

// KindOf reports the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case ValidationFailed:
		return http.StatusBadRequest
	case DependencyUnavailable:
		return http.StatusServiceUnavailable
	case Conflict:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
