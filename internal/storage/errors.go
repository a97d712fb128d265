package storage

import "errors"

// Storage errors shared by every store implementation.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists. Resolution and outcome rows are write-once.
	ErrDuplicateKey = errors.New("duplicate key: record already written")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTerminal is returned when attempting to transition an acceptance
	// row that already holds a terminal status.
	ErrTerminal = errors.New("status already terminal")
)
