package clientdata

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSBackend keeps cache units as directories on the local filesystem.
type FSBackend struct {
	root string
}

// NewFSBackend creates the root directory if needed.
func NewFSBackend(root string) (*FSBackend, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content cache root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content cache root: %w", err)
	}
	return &FSBackend{root: absRoot}, nil
}

// Root returns the absolute cache root.
func (b *FSBackend) Root() string {
	return b.root
}

func (b *FSBackend) Kind() string {
	return "fs"
}

func (b *FSBackend) path(name string) string {
	return filepath.Join(b.root, filepath.FromSlash(name))
}

func (b *FSBackend) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(b.path(name))
}

// WriteFile writes to a temporary file in the target directory and renames
// it over the destination.
func (b *FSBackend) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := b.path(name)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

func (b *FSBackend) RemoveAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.RemoveAll(b.path(dir))
}

func (b *FSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	start := b.path(prefix)
	var names []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if isNotExist(err) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list content cache: %w", err)
	}
	return names, nil
}
