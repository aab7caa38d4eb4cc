// Package apperr defines the error kinds surfaced to API clients.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports malformed or missing input, field by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation returns an empty ValidationError ready for Add.
func NewValidation() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field errors were recorded.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// OrNil returns e when it holds field errors, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthorizationError reports that the actor lacks a capability or role rank.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "this action is unauthorized"
	}
	return e.Reason
}

// Forbidden returns an AuthorizationError with reason.
func Forbidden(reason string) error {
	return &AuthorizationError{Reason: reason}
}

// NotFoundError reports an unknown role, permission, user or event.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// NotFound returns a NotFoundError for resource identified by key.
func NotFound(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

// ConflictError reports a recoverable state conflict, e.g. deleting a role still in use.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict returns a ConflictError with msg.
func Conflict(msg string) error {
	return &ConflictError{Message: msg}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err wraps an AuthorizationError.
func IsForbidden(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
