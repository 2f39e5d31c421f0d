// Package repository persists scripts, users, promotion codes and
// engagement records in MySQL. Sentinel errors defined here let handlers
// distinguish failure scenarios: ErrForbidden means the caller does not own
// the resource (HTTP 403), ErrConflict means the operation collides with
// existing state (HTTP 409), and the not-found values map to HTTP 404.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as redeeming a code that is already bound.
var ErrConflict = errors.New("conflict")

// ErrScriptNotFound is returned when no script matches the identifier.
var ErrScriptNotFound = errors.New("script not found")

// ErrUserNotFound is returned when no user matches the identifier.
var ErrUserNotFound = errors.New("user not found")

// ErrCodeNotFound is returned when no promotion code matches.
var ErrCodeNotFound = errors.New("promo code not found")
