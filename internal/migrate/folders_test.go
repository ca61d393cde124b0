package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/ceph2swift/internal/config"
	"github.com/piwi3910/ceph2swift/internal/testutil"
	"github.com/piwi3910/ceph2swift/pkg/objstore"
)

func collectPrefixes(name string) []string {
	var out []string
	for p := range ancestorPrefixes(name) {
		out = append(out, p)
	}
	return out
}

func TestAncestorPrefixesShortestFirst(t *testing.T) {
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, collectPrefixes("a/b/c/file.txt"))
	assert.Equal(t, []string{"a"}, collectPrefixes("a/file.txt"))
	assert.Empty(t, collectPrefixes("file.txt"))
	// A folder-marker key implies its own folder chain.
	assert.Equal(t, []string{"a", "a/b"}, collectPrefixes("a/b/"))
}

func TestCreatesMissingParentsInOrder(t *testing.T) {
	dest := testutil.NewFakeStore()
	stage := NewFolderStructureStage(dest, FolderOptions{Mode: config.FolderModeSuffix})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/file1.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/", "a/b/"}, dest.Placeholders)
	assert.Equal(t, objstore.DirectoryContentType, dest.ContentType("a/"))
	assert.Equal(t, 2, stage.Created())
}

func TestNeverRecreatesAPrefixInTheSameRun(t *testing.T) {
	dest := testutil.NewFakeStore()
	stage := NewFolderStructureStage(dest, FolderOptions{Mode: config.FolderModeSuffix})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	for _, name := range []string{"a/b/file1.txt", "a/b/file2.txt", "a/file3.txt"} {
		_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: name})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a/", "a/b/"}, dest.Placeholders)
}

func TestContentTypeModeCreatesBareNames(t *testing.T) {
	dest := testutil.NewFakeStore()
	stage := NewFolderStructureStage(dest, FolderOptions{Mode: config.FolderModeContentType})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/file1.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a/b"}, dest.Placeholders)
}

func TestPreloadSuffixModeSkipsExistingFolders(t *testing.T) {
	dest := testutil.NewFakeStore()
	dest.Seed("a/", "", objstore.DirectoryContentType)

	stage := NewFolderStructureStage(dest, FolderOptions{
		Mode:    config.FolderModeSuffix,
		Preload: true,
	})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/file1.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b/"}, dest.Placeholders)
	assert.Equal(t, 1, stage.Created())
}

func TestPreloadContentTypeModeSkipsDirectoryObjects(t *testing.T) {
	dest := testutil.NewFakeStore()
	dest.Seed("a", "", objstore.DirectoryContentType)
	dest.Seed("unrelated.txt", "data", "text/plain")

	stage := NewFolderStructureStage(dest, FolderOptions{
		Mode:    config.FolderModeContentType,
		Preload: true,
	})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/file1.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b"}, dest.Placeholders)
}

func TestSeededFoldersAreKnown(t *testing.T) {
	dest := testutil.NewFakeStore()
	stage := NewFolderStructureStage(dest, FolderOptions{
		Mode: config.FolderModeSuffix,
		Seed: []string{"a", "a/b/"},
	})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/c/file1.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b/c/"}, dest.Placeholders)
}

func TestPreloadFailureIsFatal(t *testing.T) {
	dest := testutil.NewFakeStore()
	dest.SetListError(errors.New("listing failed"))

	stage := NewFolderStructureStage(dest, FolderOptions{
		Mode:    config.FolderModeSuffix,
		Preload: true,
	})
	assert.Error(t, stage.BeforeProcess(context.Background()))
}

func TestCreateFailurePropagatesAsItemFailure(t *testing.T) {
	dest := testutil.NewFakeStore()
	dest.SetPutError("a/", errors.New("put failed"))

	stage := NewFolderStructureStage(dest, FolderOptions{Mode: config.FolderModeSuffix})
	require.NoError(t, stage.BeforeProcess(context.Background()))

	_, err := stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/file1.txt"})
	require.Error(t, err)
	assert.Empty(t, dest.Placeholders)

	// The failed prefix was not remembered, so the next item retries it.
	dest.SetPutError("a/", nil)
	_, err = stage.Process(context.Background(), objstore.ObjectRef{Name: "a/b/file2.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/", "a/b/"}, dest.Placeholders)
}
