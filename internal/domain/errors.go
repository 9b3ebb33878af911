package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates user supplied data failed validation
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedFileType indicates an upload with a disallowed extension
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge indicates an upload over the size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrExtraction indicates no text could be read from a file
	ErrExtraction = errors.New("text extraction failed")
	// ErrUpstream indicates a failure in the LLM, embedding or vector service
	ErrUpstream = errors.New("upstream service error")
)

// ValidationError carries every problem found while validating a booking
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "booking validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
