package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncw/swift/v2"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// objectMetaPrefix is the Swift header prefix for custom object metadata.
const objectMetaPrefix = "X-Object-Meta-"

// SwiftConfig holds the connection parameters for an OpenStack Swift
// destination.
type SwiftConfig struct {
	AuthURL     string
	User        string
	Password    string
	TenantName  string
	AuthVersion int
}

// SwiftContainer implements objstore.ObjectStore against one Swift container.
type SwiftContainer struct {
	conn      *swift.Connection
	container string
}

// NewSwiftContainer authenticates against Swift and binds the connection to
// container.
func NewSwiftContainer(ctx context.Context, cfg SwiftConfig, container string) (*SwiftContainer, error) {
	conn := &swift.Connection{
		UserName:    cfg.User,
		ApiKey:      cfg.Password,
		AuthUrl:     cfg.AuthURL,
		Tenant:      cfg.TenantName,
		AuthVersion: cfg.AuthVersion,
	}

	if err := conn.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("swift authentication failed: %w", err)
	}

	return &SwiftContainer{conn: conn, container: container}, nil
}

// Container returns the bound container name.
func (s *SwiftContainer) Container() string { return s.container }

// EnsureContainer creates the destination container. Container creation is
// idempotent in Swift, so an existing container is not an error.
func (s *SwiftContainer) EnsureContainer(ctx context.Context) error {
	if err := s.conn.ContainerCreate(ctx, s.container, nil); err != nil {
		return fmt.Errorf("%s: unable to create container: %w", s.container, err)
	}
	log.Info().Str("container", s.container).Msg("Container ready")
	return nil
}

// List returns the full container listing for destination preloading.
func (s *SwiftContainer) List(ctx context.Context) ([]objstore.ObjectRef, error) {
	objects, err := s.conn.ObjectsAll(ctx, s.container, nil)
	if err != nil {
		return nil, &objstore.StoreError{Op: "list", Err: err}
	}

	refs := make([]objstore.ObjectRef, 0, len(objects))
	for _, obj := range objects {
		refs = append(refs, objstore.ObjectRef{
			Name:         obj.Name,
			Checksum:     objstore.NormalizeChecksum(obj.Hash),
			Size:         obj.Bytes,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
		})
	}
	return refs, nil
}

// HeadChecksum resolves the stored checksum for name.
func (s *SwiftContainer) HeadChecksum(ctx context.Context, name string) (string, error) {
	info, _, err := s.conn.Object(ctx, s.container, name)
	if err != nil {
		if errors.Is(err, swift.ObjectNotFound) {
			return "", objstore.ErrNotFound
		}
		return "", &objstore.StoreError{Op: "head", Name: name, Err: err}
	}
	return objstore.NormalizeChecksum(info.Hash), nil
}

// GetObject opens the named object for reading.
func (s *SwiftContainer) GetObject(ctx context.Context, name string) (objstore.ObjectRef, io.ReadCloser, error) {
	file, _, err := s.conn.ObjectOpen(ctx, s.container, name, false, nil)
	if err != nil {
		if errors.Is(err, swift.ObjectNotFound) {
			return objstore.ObjectRef{}, nil, objstore.ErrNotFound
		}
		return objstore.ObjectRef{}, nil, &objstore.StoreError{Op: "get", Name: name, Err: err}
	}

	info, _, err := s.conn.Object(ctx, s.container, name)
	if err != nil {
		_ = file.Close()
		return objstore.ObjectRef{}, nil, &objstore.StoreError{Op: "head", Name: name, Err: err}
	}

	ref := objstore.ObjectRef{
		Name:         name,
		Checksum:     objstore.NormalizeChecksum(info.Hash),
		Size:         info.Bytes,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
	}
	return ref, file, nil
}

// PutObject creates or overwrites the named object. The upload hash is not
// enforced here; the upload stage re-reads the destination checksum and
// reports mismatches as warnings instead of failing the item.
func (s *SwiftContainer) PutObject(ctx context.Context, name string, r io.Reader, _ int64, contentType string, metadata map[string]string) error {
	_, err := s.conn.ObjectPut(ctx, s.container, name, r, false, "", contentType, metaHeaders(metadata))
	if err != nil {
		return &objstore.StoreError{Op: "put", Name: name, Err: err}
	}
	return nil
}

// PutPlaceholder creates a zero-length, directory-typed object for name.
func (s *SwiftContainer) PutPlaceholder(ctx context.Context, name string, metadata map[string]string) error {
	_, err := s.conn.ObjectPut(ctx, s.container, name, strings.NewReader(""), false, "", objstore.DirectoryContentType, metaHeaders(metadata))
	if err != nil {
		return &objstore.StoreError{Op: "put", Name: name, Err: err}
	}
	return nil
}

// metaHeaders converts plain metadata keys to Swift X-Object-Meta headers.
func metaHeaders(metadata map[string]string) swift.Headers {
	if len(metadata) == 0 {
		return nil
	}
	h := make(swift.Headers, len(metadata))
	for k, v := range metadata {
		h[objectMetaPrefix+k] = v
	}
	return h
}
