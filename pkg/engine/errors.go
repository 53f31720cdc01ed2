package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrLocked          = errors.New("locked")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")
)

// Reason codes sent back to the originating caller.
const (
	ReasonInvalidArgument = "invalid_argument"
	ReasonNotFound        = "not_found"
	ReasonForbidden       = "forbidden"
	ReasonLocked          = "locked"
	ReasonConflict        = "conflict"
	ReasonInternal        = "internal"
)

// Error is returned by every Engine operation that fails.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason maps err to its wire reason code. Errors not produced by the engine
// are reported as internal.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return ReasonInvalidArgument
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrForbidden):
		return ReasonForbidden
	case errors.Is(err, ErrLocked):
		return ReasonLocked
	case errors.Is(err, ErrConflict):
		return ReasonConflict
	default:
		return ReasonInternal
	}
}

// Message returns the caller-facing text of err. Internal failures are not
// described beyond their kind.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == ErrInternal {
		return ErrInternal.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.Error()
}

func newError(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// fromStore classifies a store failure. what names the missing record.
func fromStore(op, what string, err error) *Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Op: op, Kind: ErrNotFound, Msg: what + " not found"}
	case errors.Is(err, store.ErrReadOnly):
		return &Error{Op: op, Kind: ErrForbidden, Msg: "store is read-only", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Kind: ErrInternal, Msg: "store timed out", Err: err}
	default:
		return &Error{Op: op, Kind: ErrInternal, Msg: "store failure", Err: err}
	}
}
