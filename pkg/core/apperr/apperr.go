// Package apperr defines the error taxonomy shared by the extraction,
// persistence and dispatch layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure for retry and reporting decisions.
type Kind string

const (
	KindFetch             Kind = "FETCH"
	KindStaging           Kind = "STAGING"
	KindCapability        Kind = "CAPABILITY"
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
	KindUnsupportedShape  Kind = "UNSUPPORTED_SHAPE"
	KindValidation        Kind = "VALIDATION"
	KindPersistence       Kind = "PERSISTENCE"
	KindUnknownTask       Kind = "UNKNOWN_TASK"
	KindNotFound          Kind = "NOT_FOUND"
)

// maxRawLen bounds the raw model text kept on MalformedResponse errors.
const maxRawLen = 512

// Error is the single error type of the taxonomy.
type Error struct {
	Kind Kind
	Msg  string
	// Raw holds the (truncated) model output for MalformedResponse and
	// UnsupportedShape errors.
	Raw string
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a fresh attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindFetch, KindStaging, KindCapability, KindMalformedResponse, KindPersistence:
		return true
	}
	return false
}

func newErr(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Fetch(err error, format string, args ...interface{}) *Error {
	return newErr(KindFetch, err, format, args...)
}

func Staging(err error, format string, args ...interface{}) *Error {
	return newErr(KindStaging, err, format, args...)
}

func Capability(err error, format string, args ...interface{}) *Error {
	return newErr(KindCapability, err, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newErr(KindValidation, nil, format, args...)
}

func Persistence(err error, format string, args ...interface{}) *Error {
	return newErr(KindPersistence, err, format, args...)
}

func UnknownTask(taskType string) *Error {
	return newErr(KindUnknownTask, nil, "unrecognized task type %q", taskType)
}

func NotFound(format string, args ...interface{}) *Error {
	return newErr(KindNotFound, nil, format, args...)
}

// MalformedResponse records a model reply that is not parseable JSON.
func MalformedResponse(raw string, err error) *Error {
	e := newErr(KindMalformedResponse, err, "model reply is not valid JSON")
	e.Raw = Truncate(raw, maxRawLen)
	return e
}

// UnsupportedShape records a model reply whose JSON is neither an object
// nor an array of objects.
func UnsupportedShape(raw string, format string, args ...interface{}) *Error {
	e := newErr(KindUnsupportedShape, nil, format, args...)
	e.Raw = Truncate(raw, maxRawLen)
	return e
}

// As returns the taxonomy error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err's chain carries a taxonomy error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

// IsRetryable reports whether err is a retryable taxonomy error.
// Errors outside the taxonomy (context cancellation, programming errors)
// are not retried.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable()
}

// Text renders err as the uniform caller-visible result string.
func Text(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + err.Error()
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...[truncated]"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
