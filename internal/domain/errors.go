package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrDuplicateName      = errors.New("duplicate_name")
	ErrTagExists          = errors.New("tag_exists")
	ErrInvalidEventStatus = errors.New("invalid_event_status")
	ErrNoEventTemplates   = errors.New("no_event_templates")
	ErrValidation         = errors.New("validation")
	ErrAssertion          = errors.New("assertion")
	ErrCancelFailed       = errors.New("cancel_failed")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// AssertionError marks a violated internal invariant, e.g. a bulk delete
// that removed a different number of rows than the ownership check accounted
// for. It must never reach a caller as-is: the outermost boundary logs it
// with full context and rewrites it to a plain internal error.
type AssertionError struct {
	Op     string
	Detail string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed in %s: %s", e.Op, e.Detail)
}

func (e *AssertionError) Unwrap() error { return ErrAssertion }

func NewAssertionError(op, format string, args ...any) error {
	return &AssertionError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// CancelFailedError reports a reminder job cancellation that did not resolve.
// It carries the handle because an uncancelled job will still fire.
type CancelFailedError struct {
	Handle int64
	Err    error
}

func (e *CancelFailedError) Error() string {
	return fmt.Sprintf("cancel job %d: %v", e.Handle, e.Err)
}

func (e *CancelFailedError) Unwrap() error { return ErrCancelFailed }
