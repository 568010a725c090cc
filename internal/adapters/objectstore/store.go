// Package objectstore defines the key-based blob store the pipeline publishes
// its layers to, with S3, local directory and in-memory implementations.
package objectstore

import (
	"context"
	"path"
	"strings"
)

// Store provides read/write access to published files.
type Store interface {
	// Put replaces the object at key with body.
	Put(ctx context.Context, key string, body []byte) error
	// Get returns the object at key.
	// Returns ErrNotFound if nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key joins a layer and a file name into an object key.
func Key(layer, file string) string {
	return path.Join(layer, file)
}

type runIDKey struct{}

// WithRunID attaches the pipeline run id to ctx; stores that support object
// metadata record it on every upload.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id attached to ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func cleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimPrefix(key, "/"))
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", ErrInvalidKey
	}
	return k, nil
}
