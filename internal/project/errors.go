package project

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error unwraps to exactly one of these, so callers can
// classify failures with errors.Is.
var (
	ErrRange      = errors.New("frame out of range")
	ErrValidation = errors.New("invalid value")
	ErrConflict   = errors.New("conflict")
	ErrReference  = errors.New("missing reference")
)

// Error is returned by every mutating operation of Project. The store is
// left unmodified whenever an Error is returned.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func rangeErrorf(format string, args ...any) error {
	return &Error{Kind: ErrRange, Msg: fmt.Sprintf(format, args...)}
}

func validationErrorf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictErrorf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func referenceErrorf(format string, args ...any) error {
	return &Error{Kind: ErrReference, Msg: fmt.Sprintf(format, args...)}
}
