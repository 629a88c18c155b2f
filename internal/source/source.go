package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ctph/internal/fuzzy"
)

// ErrTooLarge is returned when an object exceeds the configured size limit.
var ErrTooLarge = fmt.Errorf("%w: object too large", fuzzy.ErrInvalidInput)

// ErrNotFound is returned when a named object does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes one hashable item of a Source.
type Object struct {
	Name string
	Size int64
}

// Source dictates the requirements for anything bytes can be hashed from.
type Source interface {
	// Walk calls fn for every object below the source root. Returning an
	// error from fn stops the walk.
	Walk(ctx context.Context, fn func(Object) error) error

	// Open returns the content of the named object. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Hash reads the named object from src and generates its signature,
// labelled with the object name. Objects larger than maxSize are rejected;
// a maxSize of zero means fuzzy.MaxInputSize.
func Hash(ctx context.Context, src Source, obj Object, maxSize int64) (fuzzy.Signature, error) {
	if maxSize <= 0 || maxSize > fuzzy.MaxInputSize {
		maxSize = fuzzy.MaxInputSize
	}
	if obj.Size > maxSize {
		return fuzzy.Signature{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, obj.Name, obj.Size)
	}

	rc, err := src.Open(ctx, obj.Name)
	if err != nil {
		return fuzzy.Signature{}, err
	}
	defer rc.Close()

	// Sizes reported by Walk can be stale, so the limit is enforced on read too.
	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return fuzzy.Signature{}, fmt.Errorf("%w: reading %s: %w", fuzzy.ErrIO, obj.Name, err)
	}
	if int64(len(data)) > maxSize {
		return fuzzy.Signature{}, fmt.Errorf("%w: %s grew past %d bytes", ErrTooLarge, obj.Name, maxSize)
	}
	return fuzzy.Generate(data, obj.Name)
}
