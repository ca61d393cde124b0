// Package objstore defines the contracts shared by the migration pipeline and
// the storage backends: the ObjectRef value type describing one remote object,
// and the ObjectStore capability interface a destination backend must satisfy.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DirectoryContentType marks a zero-length object as a virtual folder
// placeholder. Both Swift and most S3 browsers understand this convention.
const DirectoryContentType = "application/directory"

// ErrNotFound is returned by HeadChecksum and GetObject when the named object
// does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectRef is an immutable snapshot of a single listing entry. Names use '/'
// as the hierarchy separator; Checksum is the content hash in bare hex form
// (no surrounding quotes).
type ObjectRef struct {
	Name         string
	Checksum     string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// IsPlaceholder reports whether the ref looks like a folder placeholder by
// the name-suffix convention.
func (r ObjectRef) IsPlaceholder() bool {
	return strings.HasSuffix(r.Name, "/")
}

// ObjectStore abstracts one remote bucket or container. Implementations wrap
// a backend SDK bound to a fixed bucket/container name and expose only the
// operations the pipeline stages need.
type ObjectStore interface {
	// List returns a full listing of the store, used to preload destination
	// state before the pipeline starts. A List failure is fatal for the run.
	List(ctx context.Context) ([]ObjectRef, error)

	// HeadChecksum resolves the stored checksum for name, or ErrNotFound.
	HeadChecksum(ctx context.Context, name string) (string, error)

	// GetObject opens the named object for reading along with its metadata.
	GetObject(ctx context.Context, name string) (ObjectRef, io.ReadCloser, error)

	// PutObject creates or overwrites the named object.
	PutObject(ctx context.Context, name string, r io.Reader, size int64, contentType string, metadata map[string]string) error

	// PutPlaceholder creates a zero-length, directory-typed object.
	PutPlaceholder(ctx context.Context, name string, metadata map[string]string) error
}

// StoreError wraps a backend transport or auth failure with the operation and
// object name it occurred on. Stages treat it as a per-item failure.
type StoreError struct {
	Op   string
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NormalizeChecksum strips the outer quotes some backends keep on the wire
// representation of an ETag ("d41d8cd9..." vs d41d8cd9...).
func NormalizeChecksum(etag string) string {
	return strings.Trim(etag, "\"")
}
