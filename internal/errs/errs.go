// Package errs defines the error kinds raised by the scheduling and
// proposal engines. Callers wrap these with fmt.Errorf("...: %w") and
// inspect them with KindOf or Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine failure.
type Kind string

const (
	UnknownTaskReference Kind = "unknown_task_reference"
	DuplicateTask        Kind = "duplicate_task"
	CyclicDependency     Kind = "cyclic_dependency"
	InvalidSchedule      Kind = "invalid_schedule"
	NoPaymentMilestones  Kind = "no_payment_milestones"
	InvalidInput         Kind = "invalid_input"
)

// Error is a typed engine error. IDs lists the tasks or steps involved,
// in the order they were found (for a cycle, the cycle order).
type Error struct {
	Kind Kind
	Msg  string
	IDs  []string
}

func (e *Error) Error() string {
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Kind, e.Msg, strings.Join(e.IDs, " -> "))
}

// New creates an Error of the given kind.
func New(kind Kind, msg string, ids ...string) *Error {
	return &Error{Kind: kind, Msg: msg, IDs: ids}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
