package booking

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation so the HTTP layer can tell "pick
// another slot" apart from "you are not allowed" and "this appointment
// cannot be changed anymore". Expected rejections are values of this
// type; only storage faults surface as untagged errors.
type Kind uint8

const (
	// KindValidation: malformed or out-of-range input; nothing changed.
	KindValidation Kind = iota + 1
	// KindNotFound: the referenced doctor/appointment/schedule is absent
	// or not visible to the caller.
	KindNotFound
	// KindConflict: the slot was taken or the day has no availability;
	// a normal outcome, the caller should choose another time.
	KindConflict
	// KindPolicy: the operation is forbidden in the current state
	// (already paid, future date, dependent appointments).
	KindPolicy
	// KindUnauthorized: the caller's role may not perform this operation.
	KindUnauthorized
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's kind, or 0 for untagged (system) errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
