// Package common defines shared constants and sentinel errors used across
// the server and client layers of secdrive. Callers should use errors.Is to
// match these values; lower layers attach a kind with
//
//	fmt.Errorf("%w: %w", common.ErrStore, err)
//
// so both the kind and the original cause stay in the chain.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Request errors: no side effects, fixable by the caller.
	ErrValidation = errors.New("validation error")

	// ErrForbidden means the caller does not own the referenced resource.
	ErrForbidden = errors.New("forbidden")

	// Auth errors (identity binding).
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// Downstream service failures.
	ErrKeyService  = errors.New("key service error")
	ErrStore       = errors.New("store error")
	ErrObjectStore = errors.New("object store error")
)
