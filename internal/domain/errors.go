// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the caller supplied invalid input.
var ErrValidation = errors.New("validation error")

// ErrConfig indicates a required upstream credential or endpoint is missing.
// It is reported before any upstream call is made.
var ErrConfig = errors.New("configuration error")
