/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("User", "123")

	expected := `User with key "123" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "email",
			message:  "invalid format",
			expected: `validation failed for field "email": invalid format`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "missing required fields",
			expected: "validation failed: missing required fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestNotImplementedError(t *testing.T) {
	err := NewNotImplementedError("ParseBulk")

	if err.Error() != "ParseBulk: not implemented" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsNotImplemented(err) {
		t.Error("IsNotImplemented should return true for NotImplementedError")
	}
	if IsNotFound(err) {
		t.Error("NotImplementedError must not look like a not found outcome")
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("GetID", "identifier accessor is required")

	expected := `invalid configuration for "GetID": identifier accessor is required`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsConfig(err) {
		t.Error("IsConfig should return true for ConfigError")
	}
}

func TestIdentifierErrors(t *testing.T) {
	cause := errors.New("read-only id")
	errs := IdentifierErrors{
		{ID: "5", Err: cause},
		{ID: "7", Err: cause},
	}

	if !IsIdentifier(errs) {
		t.Error("IdentifierErrors should match ErrIdentifier")
	}
	if !errors.Is(errs, cause) {
		t.Error("IdentifierErrors should unwrap to the per-entity cause")
	}

	var one *IdentifierError
	if !errors.As(errs, &one) || one.ID != "5" {
		t.Errorf("errors.As should reach the first entity failure, got %+v", one)
	}

	expected := "2 identifier(s) failed: assign identifier 5: read-only id; assign identifier 7: read-only id"
	if errs.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, errs.Error())
	}
}

func TestNotifyError(t *testing.T) {
	cause := errors.New("broker unavailable")
	err := NewNotifyError("update", cause)

	if !IsNotify(err) {
		t.Error("IsNotify should return true for NotifyError")
	}
	if !errors.Is(err, cause) {
		t.Error("NotifyError should unwrap to its cause")
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotImplementedError("Count")
	wrapped := fmt.Errorf("count all: %w", original)

	if !IsNotImplemented(wrapped) {
		t.Error("IsNotImplemented should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrNotImplemented,
		ErrConfig,
		ErrIdentifier,
		ErrNotify,
		ErrNoIndexMap,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
