// Package artifact persists campaign artifacts (sampling scheme tables,
// index reports) under immutable keys. Semantics mirror a minimal subset of
// S3 so the S3 adapter is nearly 1:1 while filesystem and memory adapters
// emulate them.
package artifact

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete artifact storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // user metadata, small flat key-value
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// ErrExists indicates a Put against an already stored key; artifacts are
// immutable once written.
var ErrExists = errors.New("artifact already exists")

// Store is the interface artifact backends implement.
type Store interface {
	// Put stores a new artifact at key. Fails with ErrExists if the key is
	// already present.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get retrieves the artifact contents and metadata.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// List returns artifacts whose key has the provided prefix, ordered by
	// key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver reports which backend is in use.
	Driver() Driver
}
