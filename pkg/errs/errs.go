// Package errs defines the closed set of error kinds raised by the pipeline
// and the inference endpoint.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindDataLoad
	KindSchema
	KindSerialization
	KindCoercion
	KindTraining
)

func (k Kind) String() string {
	switch k {
	case KindDataLoad:
		return "data_load"
	case KindSchema:
		return "schema"
	case KindSerialization:
		return "serialization"
	case KindCoercion:
		return "coercion"
	case KindTraining:
		return "training"
	default:
		return "unknown"
	}
}

// UserFixable reports whether a caller can fix the failure by changing its input.
func (k Kind) UserFixable() bool {
	return k == KindSchema || k == KindCoercion
}

// Error carries a kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String() + " error"
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors of the same kind, so errors.Is(err, ErrSchema) works
// for any schema failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrDataLoad      = &Error{Kind: KindDataLoad}
	ErrSchema        = &Error{Kind: KindSchema}
	ErrSerialization = &Error{Kind: KindSerialization}
	ErrCoercion      = &Error{Kind: KindCoercion}
	ErrTraining      = &Error{Kind: KindTraining}
)

// E wraps err with a kind and an operation description. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a new error of the given kind from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
