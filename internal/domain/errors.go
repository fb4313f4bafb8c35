// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrInconclusive indicates an evaluation was cancelled before every expert
// reported back. A cancelled pipeline never returns partial results as if
// they were complete.
var ErrInconclusive = errors.New("evaluation inconclusive: cancelled before completion")
