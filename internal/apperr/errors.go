// Package apperr holds the sentinel errors shared by the service and its
// transports.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidNote   = errors.New("invalid note")
	ErrInvalidEdit   = errors.New("invalid edit")
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidPath   = errors.New("invalid note path")
)
