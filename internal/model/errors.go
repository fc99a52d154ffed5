package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownReference marks a lookup of an id that is not in the active state.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrMalformedValue marks external input that fails to parse.
	ErrMalformedValue = errors.New("malformed value")
)

// UnknownReferenceError names the missing record. It is used as a panic
// value by lookups that assume referential integrity.
type UnknownReferenceError struct {
	Kind string // "journal entry", "allocation", "bank account", ...
	ID   string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.ID)
}

func (e *UnknownReferenceError) Unwrap() error { return ErrUnknownReference }

// MalformedValueError carries the rejected input.
type MalformedValueError struct {
	Field string
	Value string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed %s: %q", e.Field, e.Value)
}

func (e *MalformedValueError) Unwrap() error { return ErrMalformedValue }
