package store

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// S3TargetConfig holds the connection parameters for an S3-compatible
// destination.
type S3TargetConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// S3Target implements objstore.ObjectStore against one bucket of an
// S3-compatible destination.
type S3Target struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Target creates a destination client bound to bucket.
func NewS3Target(cfg S3TargetConfig, bucket string) (*S3Target, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	return &S3Target{client: client, bucket: bucket, region: cfg.Region}, nil
}

// Container returns the bound bucket name.
func (s *S3Target) Container() string { return s.bucket }

// EnsureContainer creates the destination bucket if it does not exist yet.
func (s *S3Target) EnsureContainer(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return &objstore.StoreError{Op: "head-bucket", Err: err}
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return &objstore.StoreError{Op: "make-bucket", Err: err}
		}
		log.Info().Str("bucket", s.bucket).Msg("Created destination bucket")
	}
	return nil
}

// List returns the full bucket listing for destination preloading.
func (s *S3Target) List(ctx context.Context) ([]objstore.ObjectRef, error) {
	var refs []objstore.ObjectRef
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, &objstore.StoreError{Op: "list", Err: obj.Err}
		}
		refs = append(refs, objstore.ObjectRef{
			Name:         obj.Key,
			Checksum:     objstore.NormalizeChecksum(obj.ETag),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
		})
	}
	return refs, nil
}

// HeadChecksum resolves the stored checksum for name.
func (s *S3Target) HeadChecksum(ctx context.Context, name string) (string, error) {
	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", objstore.ErrNotFound
		}
		return "", &objstore.StoreError{Op: "head", Name: name, Err: err}
	}
	return objstore.NormalizeChecksum(info.ETag), nil
}

// GetObject opens the named object for reading.
func (s *S3Target) GetObject(ctx context.Context, name string) (objstore.ObjectRef, io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return objstore.ObjectRef{}, nil, &objstore.StoreError{Op: "get", Name: name, Err: err}
	}

	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return objstore.ObjectRef{}, nil, objstore.ErrNotFound
		}
		return objstore.ObjectRef{}, nil, &objstore.StoreError{Op: "stat", Name: name, Err: err}
	}

	ref := objstore.ObjectRef{
		Name:         name,
		Checksum:     objstore.NormalizeChecksum(info.ETag),
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
	}
	return ref, obj, nil
}

// PutObject creates or overwrites the named object.
func (s *S3Target) PutObject(ctx context.Context, name string, r io.Reader, size int64, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return &objstore.StoreError{Op: "put", Name: name, Err: err}
	}
	return nil
}

// PutPlaceholder creates a zero-length, directory-typed object for name.
func (s *S3Target) PutPlaceholder(ctx context.Context, name string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, strings.NewReader(""), 0, minio.PutObjectOptions{
		ContentType:  objstore.DirectoryContentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return &objstore.StoreError{Op: "put", Name: name, Err: err}
	}
	return nil
}
