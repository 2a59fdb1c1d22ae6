// Package service provides the account and vault business logic.
package service

import (
	"errors"
	"fmt"
)

// Service errors. Handlers translate these to HTTP responses; storage
// causes are logged here and never surfaced to clients.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateAccount   = errors.New("unable to create account")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrNoFieldsProvided   = errors.New("no fields provided")
	ErrIntegrity          = errors.New("stored secret failed integrity check")
	ErrStorage            = errors.New("storage failure")
)

// ValidationError describes one rejected input field. It matches
// ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
