package document

import "errors"

// Document addressing and structure errors.
var (
	// ErrInvalidAddress is returned for strings outside the addressing grammar.
	ErrInvalidAddress = errors.New("invalid section/chunk address")

	// ErrSectionNotFound is returned when an address points past the tree.
	ErrSectionNotFound = errors.New("section not found in structure")

	// ErrChunkOutOfRange is returned when a chunk index exceeds the document.
	ErrChunkOutOfRange = errors.New("chunk index out of range")
)
