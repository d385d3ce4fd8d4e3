/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented is returned when a backend or notifier lacks a capability
	ErrNotImplemented = errors.New("not implemented")

	// ErrConfig is returned when a service cannot be constructed from its descriptor
	ErrConfig = errors.New("invalid configuration")

	// ErrIdentifier is returned when an identifier cannot be assigned to an entity image
	ErrIdentifier = errors.New("identifier assignment failed")

	// ErrNotify is returned when a synchronous change notification is rejected
	ErrNotify = errors.New("change notification failed")

	// ErrNoIndexMap is returned when no index map is found for a type
	ErrNoIndexMap = errors.New("no index map found for type")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotImplementedError names the operation a collaborator does not support.
type NotImplementedError struct {
	Operation string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: not implemented", e.Operation)
}

func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// ConfigError represents a descriptor or wiring problem detected at construction.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// IdentifierError reports a single entity whose identifier could not be assigned.
type IdentifierError struct {
	ID  string
	Err error
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("assign identifier %s: %v", e.ID, e.Err)
}

func (e *IdentifierError) Unwrap() error {
	return e.Err
}

func (e *IdentifierError) Is(target error) bool {
	return target == ErrIdentifier
}

// IdentifierErrors collects every failed entity of a batch. No entity is
// dropped silently: each failure appears here with its identifier.
type IdentifierErrors []*IdentifierError

func (e IdentifierErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ie := range e {
		parts = append(parts, ie.Error())
	}
	return fmt.Sprintf("%d identifier(s) failed: %s", len(e), strings.Join(parts, "; "))
}

func (e IdentifierErrors) Is(target error) bool {
	return target == ErrIdentifier
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e IdentifierErrors) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, ie := range e {
		errs = append(errs, ie)
	}
	return errs
}

// NotifyError wraps a failure of a synchronous change notification. The
// backend mutation it describes has already been applied.
type NotifyError struct {
	Kind string
	Err  error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Kind, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

func (e *NotifyError) Is(target error) bool {
	return target == ErrNotify
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewNotImplementedError creates a new NotImplementedError
func NewNotImplementedError(operation string) error {
	return &NotImplementedError{Operation: operation}
}

// NewConfigError creates a new ConfigError
func NewConfigError(field, message string) error {
	return &ConfigError{Field: field, Message: message}
}

// NewNotifyError creates a new NotifyError
func NewNotifyError(kind string, err error) error {
	return &NotifyError{Kind: kind, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotImplemented checks if an error is a not implemented error
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsIdentifier checks if an error is an identifier assignment error
func IsIdentifier(err error) bool {
	return errors.Is(err, ErrIdentifier)
}

// IsNotify checks if an error is a notification error
func IsNotify(err error) bool {
	return errors.Is(err, ErrNotify)
}
