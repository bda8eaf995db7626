package clientdata

import (
	"context"
	"errors"
	"io/fs"
)

// ErrNotExist is returned by backends for missing objects.
var ErrNotExist = fs.ErrNotExist

// Backend stores cache objects under slash-separated relative names.
type Backend interface {
	// ReadFile returns ErrNotExist (possibly wrapped) when name is missing.
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// WriteFile replaces name atomically; readers never observe partial content.
	WriteFile(ctx context.Context, name string, data []byte) error
	// RemoveAll deletes dir and everything below it. Missing dirs are not an error.
	RemoveAll(ctx context.Context, dir string) error
	// List returns the names of all objects below prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Kind names the backend for logs and status output.
	Kind() string
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
