package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements Publisher by copying tracks into a mirror directory.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a LocalStorage rooted at root.
// The directory is created if it doesn't exist.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: publish directory is required", ErrInvalidKey)
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create publish directory: %w", err)
	}

	return &LocalStorage{root: root}, nil
}

// Root returns the mirror directory.
func (s *LocalStorage) Root() string {
	return s.root
}

// Publish writes data to <root>/<key> and returns the file path.
// A partially written file is removed on failure. When data is an open file
// that already sits at the destination, it is left untouched.
func (s *LocalStorage) Publish(ctx context.Context, key string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("create publish directory: %w", err)
	}

	if sameFile(data, dest) {
		return dest, nil
	}

	f, err := os.Create(dest) // #nosec G304 - key is cleaned and rooted
	if err != nil {
		return "", fmt.Errorf("create published file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write published file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("close published file: %w", err)
	}

	return dest, nil
}

// sameFile reports whether data is the file already stored at dest.
func sameFile(data io.Reader, dest string) bool {
	src, ok := data.(*os.File)
	if !ok {
		return false
	}
	srcInfo, err := src.Stat()
	if err != nil {
		return false
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		return false
	}
	return os.SameFile(srcInfo, destInfo)
}
