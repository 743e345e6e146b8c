// Package apperrors defines the typed failures surfaced by the catalog
// services. Transport layers map them to status codes with errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports a missing entity. IDs lists every missing id when
// a batch lookup failed.
type NotFoundError struct {
	Resource string
	ID       int64
	IDs      []int64
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s not found: %s", e.Resource, formatIDs(e.IDs))
	}
	if e.ID != 0 {
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
	return e.Resource + " not found"
}

// ValidationError represents a structural rule violation
type ValidationError struct {
	Field   string  `json:"field"`
	Message string  `json:"message"`
	Code    string  `json:"code"`
	IDs     []int64 `json:"ids,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, formatIDs(e.IDs))
	}
	return e.Message
}

// AuthenticationError reports a missing or unusable identity
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError reports an identity lacking rights over a resource
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// PayloadTooLargeError reports an upload above the accepted ceiling
type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("uploaded file too large (%d bytes), max is %d bytes", e.Size, e.Limit)
}

// NotFound builds a NotFoundError for a single id
func NotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Invalid builds a ValidationError
func Invalid(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// Forbidden builds an AuthorizationError
func Forbidden(message string) error {
	return &AuthorizationError{Message: message}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

func IsPayloadTooLarge(err error) bool {
	var target *PayloadTooLargeError
	return errors.As(err, &target)
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
