// Package apperr defines the failure kinds shared by every pipeline stage.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether a rerun makes sense.
type Kind int

const (
	// Configuration covers missing or malformed credentials and identifiers.
	Configuration Kind = iota + 1
	// TransientIO covers network or service failures. The whole run may be retried.
	TransientIO
	// DictionaryBuild covers custom dictionary compilation failures.
	DictionaryBuild
	// TokenizerUnavailable covers analyzer initialization failures.
	TokenizerUnavailable
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration error"
	case TransientIO:
		return "transient i/o error"
	case DictionaryBuild:
		return "dictionary build error"
	case TokenizerUnavailable:
		return "tokenizer unavailable"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is checks against a Kind.
var (
	ErrConfiguration        = &Error{Kind: Configuration}
	ErrTransientIO          = &Error{Kind: TransientIO}
	ErrDictionaryBuild      = &Error{Kind: DictionaryBuild}
	ErrTokenizerUnavailable = &Error{Kind: TokenizerUnavailable}
)

// Error is a classified failure. Field names the offending configuration key,
// Op the operation that failed.
type Error struct {
	Kind  Kind
	Field string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so the exported
// sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Configurationf reports a missing or invalid configuration field.
func Configurationf(field, format string, args ...any) error {
	return &Error{Kind: Configuration, Field: field, Err: fmt.Errorf(format, args...)}
}

// Transient wraps err as a TransientIO failure of op.
func Transient(op string, err error) error {
	return &Error{Kind: TransientIO, Op: op, Err: err}
}

// DictionaryBuildf reports a dictionary compilation failure.
func DictionaryBuildf(format string, args ...any) error {
	return &Error{Kind: DictionaryBuild, Err: fmt.Errorf(format, args...)}
}

// Tokenizer wraps err as a TokenizerUnavailable failure.
func Tokenizer(err error) error {
	return &Error{Kind: TokenizerUnavailable, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain. Context
// deadline and cancellation errors count as TransientIO. Zero means unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TransientIO
	}
	return 0
}

// IsRetryable reports whether rerunning the whole pipeline could succeed.
func IsRetryable(err error) bool {
	return KindOf(err) == TransientIO
}
