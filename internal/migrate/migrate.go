// Package migrate implements the migration stages and the runner that
// assembles them into a pipeline: per-key logging, folder structure creation,
// existence checking and the upload itself.
package migrate

import (
	"context"
	"io"
	"iter"

	"github.com/piwi3910/ceph2swift/internal/pipeline"
	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// ErrAlreadyExists marks an object whose destination copy already carries the
// source checksum. It is an expected skip, never a failure.
var ErrAlreadyExists = &pipeline.SkipError{Reason: "file already exists"}

// Source is the read side of the source bucket: the lazy listing feed the
// pipeline consumes plus object access for uploads.
type Source interface {
	// Lookup verifies the source bucket exists before the run starts.
	Lookup(ctx context.Context) error

	// Objects returns the lazy listing feed. The sequence must check ctx
	// before yielding each item.
	Objects(ctx context.Context) iter.Seq[objstore.ObjectRef]

	// GetObject opens one object for reading.
	GetObject(ctx context.Context, name string) (objstore.ObjectRef, io.ReadCloser, error)

	// Err returns the listing's terminal error once the feed is exhausted.
	Err() error
}

// Destination is the destination store plus container management.
type Destination interface {
	objstore.ObjectStore

	// EnsureContainer creates the destination container/bucket if missing.
	// A failure here aborts the run before the pipeline starts.
	EnsureContainer(ctx context.Context) error

	// Container returns the bound container/bucket name.
	Container() string
}
