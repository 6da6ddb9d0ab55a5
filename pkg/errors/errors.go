// Package errors provides the structured error kinds shared by the service.
// Callers check kinds with Is (or errors.As) instead of matching strings.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid input or configuration supplied by a caller.
type ValidationError struct {
	Op  string // where it happened (package.Function)
	Msg string // human friendly message (no PII)
	Err error  // underlying cause (optional)
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format("validation", e.Op, e.Msg, e.Err)
}

func (e *ValidationError) Unwrap() error           { return e.Err }
func (e *ValidationError) Operation() string       { return e.Op }
func (e *ValidationError) Message() string         { return e.Msg }
func (e *ValidationError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// NotFoundError is returned by stores when a lookup by id finds nothing.
// Lookups by match key return empty slices instead.
type NotFoundError struct {
	Op       string
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("not found: %s: %s %s", e.Op, e.Resource, e.ID)
}

func (e *NotFoundError) Operation() string { return e.Op }
func (e *NotFoundError) Message() string   { return e.Resource + " not found" }
func (e *NotFoundError) Context() map[string]any {
	return map[string]any{"op": e.Op, "resource": e.Resource, "id": e.ID}
}

func NewNotFound(op, resource, id string) error {
	return &NotFoundError{Op: op, Resource: resource, ID: id}
}

// DBError represents database access/operation failures.
type DBError struct {
	Op  string
	Msg string
	Err error
}

func (e *DBError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format("db", e.Op, e.Msg, e.Err)
}

func (e *DBError) Unwrap() error           { return e.Err }
func (e *DBError) Operation() string       { return e.Op }
func (e *DBError) Message() string         { return e.Msg }
func (e *DBError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewDB(op, msg string, err error) error { return &DBError{Op: op, Msg: msg, Err: err} }

// ExternalAPIError represents failures in external services (geolocation, OCR extraction).
type ExternalAPIError struct {
	Op     string
	Msg    string
	Err    error
	System string // "google" / "openai"
}

func (e *ExternalAPIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	sys := e.System
	if sys == "" {
		sys = "external"
	}
	return format(sys, e.Op, e.Msg, e.Err)
}

func (e *ExternalAPIError) Unwrap() error     { return e.Err }
func (e *ExternalAPIError) Operation() string { return e.Op }
func (e *ExternalAPIError) Message() string   { return e.Msg }
func (e *ExternalAPIError) Context() map[string]any {
	return map[string]any{"op": e.Op, "msg": e.Msg, "system": e.System}
}

func NewExternal(op, system, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: system, Msg: msg, Err: err}
}

func format(kind, op, msg string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", kind, op, msg, err)
	}
	return fmt.Sprintf("%s: %s: %s", kind, op, msg)
}

// Kind sentinels for Is.
// Example: if errs.Is(err, errs.ErrValidation) { ... }
var (
	ErrValidation = &ValidationError{}
	ErrNotFound   = &NotFoundError{}
	ErrDB         = &DBError{}
	ErrExternal   = &ExternalAPIError{}
)

// Is reports whether err's chain holds an error of the same kind as target.
// Targets that are not one of the kinds above fall back to errors.Is.
func Is(err, target error) bool {
	if err == nil || target == nil {
		return errors.Is(err, target)
	}
	switch target.(type) {
	case *ValidationError:
		var v *ValidationError
		return errors.As(err, &v)
	case *NotFoundError:
		var n *NotFoundError
		return errors.As(err, &n)
	case *DBError:
		var d *DBError
		return errors.As(err, &d)
	case *ExternalAPIError:
		var ex *ExternalAPIError
		return errors.As(err, &ex)
	default:
		return errors.Is(err, target)
	}
}
