package samplemodel

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrInvariantViolation = errors.New("invariant violation")
)
