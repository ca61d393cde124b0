// Package store implements the storage backends behind the migration
// pipeline: the Ceph RGW source (aws-sdk-go-v2) and the two destination
// backends, OpenStack Swift (ncw/swift) and generic S3-compatible (minio-go).
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

// listPageSize is the max-keys value used for source listing pages.
const listPageSize = 1000

// NewS3Client creates an S3 client for a Ceph RGW endpoint. Ceph expects
// path-style addressing (the ordinary calling format).
func NewS3Client(ctx context.Context, host, accessKey, secretKey, region string, secure bool) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	scheme := "https"
	if !secure {
		scheme = "http"
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, host))
	})

	return client, nil
}

// SourceBucket wraps an S3 client bound to one source bucket. It provides the
// lazy listing feed the pipeline consumes and read access for uploads.
type SourceBucket struct {
	client *s3.Client
	bucket string
	err    error
}

// NewSourceBucket binds client to bucket.
func NewSourceBucket(client *s3.Client, bucket string) *SourceBucket {
	return &SourceBucket{client: client, bucket: bucket}
}

// Bucket returns the bound bucket name.
func (b *SourceBucket) Bucket() string { return b.bucket }

// Lookup verifies the bucket exists and is reachable. A failure here is a
// setup failure for the whole run.
func (b *SourceBucket) Lookup(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return fmt.Errorf("%s: tenant bucket not found", b.bucket)
		}
		return fmt.Errorf("%s: unable to reach bucket: %w", b.bucket, err)
	}
	return nil
}

// Objects returns a lazy sequence over the full bucket listing, pulling one
// page at a time. The sequence checks ctx before yielding each item and stops
// producing once it is cancelled. A listing failure terminates the sequence;
// check Err after the pipeline drains.
func (b *SourceBucket) Objects(ctx context.Context) iter.Seq[objstore.ObjectRef] {
	return func(yield func(objstore.ObjectRef) bool) {
		paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
			Bucket:  aws.String(b.bucket),
			MaxKeys: aws.Int32(listPageSize),
		})

		for paginator.HasMorePages() {
			if ctx.Err() != nil {
				return
			}

			page, err := paginator.NextPage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.err = &objstore.StoreError{Op: "list", Err: err}
					log.Error().Err(err).Str("bucket", b.bucket).Msg("Unable to list source keys")
				}
				return
			}

			for _, obj := range page.Contents {
				if ctx.Err() != nil {
					return
				}
				if !yield(objstore.ObjectRef{
					Name:         aws.ToString(obj.Key),
					Checksum:     objstore.NormalizeChecksum(aws.ToString(obj.ETag)),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
				}) {
					return
				}
			}
		}
	}
}

// Err returns the terminal listing error, if any, once the sequence returned
// by Objects has been exhausted.
func (b *SourceBucket) Err() error { return b.err }

// GetObject opens one source object for reading with its full metadata.
func (b *SourceBucket) GetObject(ctx context.Context, name string) (objstore.ObjectRef, io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return objstore.ObjectRef{}, nil, &objstore.StoreError{Op: "get", Name: name, Err: err}
	}

	ref := objstore.ObjectRef{
		Name:         name,
		Checksum:     objstore.NormalizeChecksum(aws.ToString(out.ETag)),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
	}
	return ref, out.Body, nil
}
