// Package domainerr defines the typed error taxonomy shared by every domain package.
//
// Domains declare sentinels with New and callers match them with errors.Is. The
// HTTP layer classifies unknown errors with KindOf.
package domainerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidState       Kind = "invalid_state"
	KindValidation         Kind = "validation_error"
	KindConflict           Kind = "conflict"
	KindInsufficientAmount Kind = "insufficient_amount"
)

type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Fields map[string]string
}

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

// Is matches any *Error with the same code, so detailed copies still match their sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetail returns a copy of e carrying a human readable message.
func (e *Error) WithDetail(format string, args ...any) *Error {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// WithField returns a copy of e annotated with a field level reason.
func (e *Error) WithField(field, reason string) *Error {
	cp := *e
	cp.Fields = make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[field] = reason
	return &cp
}

// Message is the client facing text.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Code
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
