// Package apperror defines the error vocabulary shared by repositories,
// services and handlers.
//
// Lower layers return an *AppError wrapping one of the sentinel errors below.
// Handlers never inspect messages; they use errors.Is to pick a response:
//
//	ErrValidation   → redisplay the form (200) with the field messages
//	ErrNotFound     → 404 page
//	ErrUnauthorized → redisplay the login form with a generic message
//	anything else   → 500
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// NonField is the Fields key used for errors that belong to the whole form
// rather than to one input (for example "You cannot answer your own question.").
const NonField = "__all__"

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error

	// Fields holds one message per invalid input, keyed by form field name.
	// Only validation errors populate it.
	Fields map[string]string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FieldError returns the message recorded for field, or "".
func (e *AppError) FieldError(field string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	return e.Fields[field]
}

// NotFound also answers ownership checks: editing someone else's question
// looks exactly like editing one that does not exist.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a single invalid field. Pass NonField as field
// for form-wide errors.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string]string{field: message},
	}
}

// Invalid reports several invalid fields at once. The Message joins the
// individual messages in field order so logs stay deterministic.
func Invalid(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fields[name])
	}

	e := &AppError{
		Err:     ErrValidation,
		Message: strings.Join(msgs, "; "),
		Fields:  fields,
	}
	if len(names) == 1 {
		e.Field = names[0]
	}
	return e
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthorized reports failed authentication. Callers pass the same message
// whether the email is unknown or the password is wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
