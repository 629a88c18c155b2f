package fuzzy

import "errors"

var (
	// ErrInvalidInput is returned when a buffer exceeds MaxInputSize.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIO is returned when the bytes to hash could not be read.
	ErrIO = errors.New("i/o error")
	// ErrMalformedSignature is returned when text does not parse as a signature.
	ErrMalformedSignature = errors.New("malformed signature")
)
