package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/ceph2swift/internal/testutil"
	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

func TestUploadCopiesContentAndMetadata(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	sum := source.Seed("a/file.txt", "hello world", "text/plain")

	stage := NewUploadStage(source, dest)
	require.NoError(t, stage.BeforeProcess(context.Background()))

	item := objstore.ObjectRef{
		Name:         "a/file.txt",
		Checksum:     sum,
		LastModified: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	out, err := stage.Process(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, item.Name, out.Name)

	assert.True(t, dest.Has("a/file.txt"))
	assert.Equal(t, "text/plain", dest.ContentType("a/file.txt"))
	assert.Equal(t, "2023-06-01T12:00:00Z", dest.Metadata("a/file.txt")[sourceModifiedMetaKey])
	assert.Equal(t, 1, stage.Uploaded())
	assert.Zero(t, stage.Mismatched())
}

func TestChecksumMismatchIsWarningNotFailure(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	sum := source.Seed("a/file.txt", "hello world", "text/plain")
	dest.SetChecksumAfterWrite("a/file.txt", "deadbeef")

	stage := NewUploadStage(source, dest)
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/file.txt", Checksum: sum})
	// The item is still counted as attempted, not failed.
	require.NoError(t, err)
	assert.Equal(t, 1, stage.Mismatched())
	assert.Zero(t, stage.Uploaded())
	assert.True(t, dest.Has("a/file.txt"))
}

func TestZeroByteObjectUploads(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	sum := source.Seed("empty.bin", "", "application/octet-stream")

	stage := NewUploadStage(source, dest)
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "empty.bin", Checksum: sum})
	require.NoError(t, err)
	assert.True(t, dest.Has("empty.bin"))
	assert.Equal(t, 1, stage.Uploaded())
}

func TestSourceReadFailureIsItemFailure(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/file.txt", "hello", "text/plain")
	source.SetGetError(errors.New("connection reset"))

	stage := NewUploadStage(source, dest)
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/file.txt"})
	require.Error(t, err)
	assert.False(t, dest.Has("a/file.txt"))
}

func TestDestinationWriteFailureIsItemFailure(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	sum := source.Seed("a/file.txt", "hello", "text/plain")
	dest.SetPutError("a/file.txt", errors.New("quota exceeded"))

	stage := NewUploadStage(source, dest)
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/file.txt", Checksum: sum})
	require.Error(t, err)
	assert.Zero(t, stage.Uploaded())
}
