// Package storage publishes exported track files to a destination outside
// the album directory. It defines the Publisher interface (port) and
// implementations for a local mirror directory and S3.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Static errors for publishing.
var (
	// ErrPublish wraps any failure to publish a track.
	ErrPublish = errors.New("publish failed")
	// ErrInvalidKey is returned for keys that resolve to nothing.
	ErrInvalidKey = errors.New("invalid publish key")
)

// Publisher uploads a finished track and returns where it can be fetched.
type Publisher interface {
	// Publish stores data under key ("<album>/<file>") and returns its location.
	Publish(ctx context.Context, key string, data io.Reader) (location string, err error)
}

// cleanKey normalizes key to a slash-separated relative path.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", ErrInvalidKey
	}
	return k, nil
}
