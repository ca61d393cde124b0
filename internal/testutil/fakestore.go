// Package testutil provides shared testing fakes for ceph2swift.
//
// FakeStore is a thread-safe in-memory object store used as both source and
// destination in pipeline and stage tests. It supports error injection per
// operation and records the order of writes so tests can assert on
// creation order.
package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// fakeObject is one stored object.
type fakeObject struct {
	content      []byte
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

// FakeStore is an in-memory objstore.ObjectStore with error injection.
type FakeStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject

	listErr        error
	lookupErr      error
	headErr        error
	getErr         error
	putErrOn       map[string]error
	checksumAfter  map[string]string
	ensureErr      error
	containerName  string
	ensureCalled   bool

	// Puts records object writes in order, Placeholders placeholder writes.
	Puts         []string
	Placeholders []string
	HeadCalls    []string
}

// NewFakeStore creates an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		objects:       make(map[string]fakeObject),
		putErrOn:      make(map[string]error),
		checksumAfter: make(map[string]string),
		containerName: "alaya-test",
	}
}

// Seed stores an object with the given content, returning its checksum.
func (f *FakeStore) Seed(name, content, contentType string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = fakeObject{
		content:      []byte(content),
		contentType:  contentType,
		lastModified: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	return Checksum(content)
}

// SetListError makes List fail.
func (f *FakeStore) SetListError(err error) { f.listErr = err }

// SetLookupError makes Lookup fail.
func (f *FakeStore) SetLookupError(err error) { f.lookupErr = err }

// SetHeadError makes HeadChecksum fail for present objects.
func (f *FakeStore) SetHeadError(err error) { f.headErr = err }

// SetGetError makes GetObject fail.
func (f *FakeStore) SetGetError(err error) { f.getErr = err }

// SetPutError makes writes to name fail.
func (f *FakeStore) SetPutError(name string, err error) { f.putErrOn[name] = err }

// SetChecksumAfterWrite overrides the checksum reported for name after it has
// been written, to simulate a post-upload verification mismatch.
func (f *FakeStore) SetChecksumAfterWrite(name, checksum string) {
	f.checksumAfter[name] = checksum
}

// SetEnsureError makes EnsureContainer fail.
func (f *FakeStore) SetEnsureError(err error) { f.ensureErr = err }

// Has reports whether name is stored.
func (f *FakeStore) Has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[name]
	return ok
}

// ContentType returns the stored content type for name.
func (f *FakeStore) ContentType(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[name].contentType
}

// Metadata returns the stored metadata for name.
func (f *FakeStore) Metadata(name string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[name].metadata
}

// EnsureCalled reports whether EnsureContainer ran.
func (f *FakeStore) EnsureCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureCalled
}

// Container returns the container name.
func (f *FakeStore) Container() string { return f.containerName }

// EnsureContainer records the call, failing if configured to.
func (f *FakeStore) EnsureContainer(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.ensureCalled = true
	return nil
}

func (f *FakeStore) ref(name string, obj fakeObject) objstore.ObjectRef {
	checksum := Checksum(string(obj.content))
	if override, ok := f.checksumAfter[name]; ok {
		checksum = override
	}
	return objstore.ObjectRef{
		Name:         name,
		Checksum:     checksum,
		Size:         int64(len(obj.content)),
		LastModified: obj.lastModified,
		ContentType:  obj.contentType,
	}
}

// List returns all stored objects sorted by name.
func (f *FakeStore) List(context.Context) ([]objstore.ObjectRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

	names := make([]string, 0, len(f.objects))
	for name := range f.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]objstore.ObjectRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, f.ref(name, f.objects[name]))
	}
	return refs, nil
}

// HeadChecksum resolves the stored checksum for name.
func (f *FakeStore) HeadChecksum(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HeadCalls = append(f.HeadCalls, name)

	obj, ok := f.objects[name]
	if !ok {
		return "", objstore.ErrNotFound
	}
	if f.headErr != nil {
		return "", f.headErr
	}
	if override, ok := f.checksumAfter[name]; ok {
		return override, nil
	}
	return Checksum(string(obj.content)), nil
}

// GetObject opens the named object for reading.
func (f *FakeStore) GetObject(_ context.Context, name string) (objstore.ObjectRef, io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return objstore.ObjectRef{}, nil, f.getErr
	}

	obj, ok := f.objects[name]
	if !ok {
		return objstore.ObjectRef{}, nil, objstore.ErrNotFound
	}
	return f.ref(name, obj), io.NopCloser(bytes.NewReader(obj.content)), nil
}

// PutObject stores the object, recording the write.
func (f *FakeStore) PutObject(_ context.Context, name string, r io.Reader, _ int64, contentType string, metadata map[string]string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.putErrOn[name]; err != nil {
		return err
	}

	f.objects[name] = fakeObject{
		content:      content,
		contentType:  contentType,
		metadata:     metadata,
		lastModified: time.Now().UTC(),
	}
	f.Puts = append(f.Puts, name)
	return nil
}

// PutPlaceholder stores a zero-length directory-typed object.
func (f *FakeStore) PutPlaceholder(_ context.Context, name string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.putErrOn[name]; err != nil {
		return err
	}

	f.objects[name] = fakeObject{
		contentType:  objstore.DirectoryContentType,
		metadata:     metadata,
		lastModified: time.Now().UTC(),
	}
	f.Placeholders = append(f.Placeholders, name)
	return nil
}

// Objects returns a lazy sequence over the stored objects sorted by name, so
// a FakeStore can serve as the source listing feed. The sequence checks ctx
// before every yield.
func (f *FakeStore) Objects(ctx context.Context) iter.Seq[objstore.ObjectRef] {
	return func(yield func(objstore.ObjectRef) bool) {
		refs, err := f.List(ctx)
		if err != nil {
			return
		}
		for _, ref := range refs {
			if ctx.Err() != nil {
				return
			}
			if !yield(ref) {
				return
			}
		}
	}
}

// Lookup implements the source's bucket check.
func (f *FakeStore) Lookup(context.Context) error { return f.lookupErr }

// Err implements the source feed's terminal-error accessor.
func (f *FakeStore) Err() error { return nil }

// Checksum returns the hex MD5 of content, the checksum form every backend
// reports for plain uploads.
func Checksum(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// RefNamed builds a minimal ObjectRef for tests that only care about names.
func RefNamed(name string) objstore.ObjectRef {
	return objstore.ObjectRef{
		Name:     name,
		Checksum: Checksum(fmt.Sprintf("content of %s", name)),
	}
}
