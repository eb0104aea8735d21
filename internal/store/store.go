// Package store provides the content store adapters. A store keeps named
// JSON documents (and binary assets) under version control and exposes
// compare-and-swap writes: every read returns an opaque integrity token,
// and a write only succeeds when the caller presents the token observed at
// read time.
package store

import (
	"context"
	"errors"
)

// Document is a single versioned resource in the store.
type Document struct {
	Path    string
	Content []byte
	// Token identifies the exact persisted revision of the document.
	// Empty means the document does not exist yet.
	Token string
}

var (
	// ErrNotFound is returned by Read when the path does not exist.
	// Callers treat this as "empty collection", not as a hard failure.
	ErrNotFound = errors.New("store: document not found")

	// ErrConflict is returned by Write when the presented token does not
	// match the store's current token for the path, or when an empty token
	// is presented for a path that already exists.
	ErrConflict = errors.New("store: write conflict")

	// ErrUnavailable wraps transport or remote-API failures.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the content store adapter contract. Implementations append one
// durable revision per successful Write, recorded with the supplied
// human-readable message. No retries happen inside the adapter.
type Store interface {
	Read(ctx context.Context, path string) (Document, error)
	// Write persists content at path conditioned on token and returns the
	// new integrity token. An empty token means create-only: the write
	// fails with ErrConflict if the path already exists.
	Write(ctx context.Context, path string, content []byte, token, message string) (string, error)
}
