// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// Crypto errors.
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrInsufficientEntropy = errors.New("insufficient entropy")
	ErrKeyLength           = errors.New("invalid key length")
	ErrMissingParameter    = errors.New("missing parameter")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrEmptyInput          = errors.New("empty input")
	ErrUnknownKeyID        = errors.New("unknown key id")

	// User validation errors.
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidOrInactiveUser = errors.New("invalid or inactive user")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
