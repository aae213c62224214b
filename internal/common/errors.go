// Package common defines shared constants and sentinel errors used across
// the web tier, the processing service and the CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorForbidden marks a record that exists but belongs to another
	// account. It never crosses an HTTP boundary; handlers report it as
	// ErrorNotFound.
	ErrorForbidden = errors.New("forbidden")

	// Validation errors (missing/empty/disallowed upload, blank form fields).
	ErrValidation = errors.New("validation error")

	// Registration / authentication errors.
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Pipeline capability errors.
	ErrTranscription = errors.New("transcription failed")
	ErrSynthesis     = errors.New("synthesis failed")
	ErrPersistence   = errors.New("persistence failed")
)
