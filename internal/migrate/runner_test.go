package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/ceph2swift/internal/config"
	"github.com/piwi3910/ceph2swift/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Tenant:          "acme",
		ContainerPrefix: "alaya",
		Preload:         true,
		FolderMode:      config.FolderModeSuffix,
		StateDir:        t.TempDir(),
	}
}

func TestMigratesFreshSource(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/b/file1.txt", "content X", "text/plain")
	source.Seed("a/file2.txt", "content Y", "text/plain")

	r := NewRunner(testConfig(t), source, dest)
	require.NoError(t, r.Run(context.Background()))

	assert.True(t, dest.EnsureCalled())
	// Parents strictly before children.
	assert.Equal(t, []string{"a/", "a/b/"}, dest.Placeholders)
	assert.ElementsMatch(t, []string{"a/b/file1.txt", "a/file2.txt"}, dest.Puts)
	assert.True(t, dest.Has("a/b/file1.txt"))
	assert.True(t, dest.Has("a/file2.txt"))
}

func TestSkipsObjectsAlreadyMigrated(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/b/file1.txt", "content X", "text/plain")
	source.Seed("a/file2.txt", "content Y", "text/plain")
	dest.Seed("a/file2.txt", "content Y", "text/plain")

	r := NewRunner(testConfig(t), source, dest)
	require.NoError(t, r.Run(context.Background()))

	// The checksum-identical object is never written again.
	assert.Equal(t, []string{"a/b/file1.txt"}, dest.Puts)
}

func TestSecondRunIsIdempotent(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/b/file1.txt", "content X", "text/plain")
	source.Seed("a/file2.txt", "content Y", "text/plain")

	cfg := testConfig(t)
	require.NoError(t, NewRunner(cfg, source, dest).Run(context.Background()))

	folders := len(dest.Placeholders)
	puts := len(dest.Puts)

	require.NoError(t, NewRunner(cfg, source, dest).Run(context.Background()))

	assert.Equal(t, folders, len(dest.Placeholders), "second run must create no folders")
	assert.Equal(t, puts, len(dest.Puts), "second run must upload nothing")
}

func TestDefaultKeysNeverReachFolderOrUploadStages(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("default/creds.txt", "secret", "text/plain")
	source.Seed("a/file.txt", "content", "text/plain")

	r := NewRunner(testConfig(t), source, dest)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"a/"}, dest.Placeholders)
	assert.Equal(t, []string{"a/file.txt"}, dest.Puts)
	assert.False(t, dest.Has("default/creds.txt"))
}

func TestFolderMarkerKeysCreateFoldersButAreNotUploaded(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/b/", "", "application/directory")

	r := NewRunner(testConfig(t), source, dest)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"a/", "a/b/"}, dest.Placeholders)
	assert.Empty(t, dest.Puts)
}

func TestOneBadObjectDoesNotAbortTheRun(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/bad.txt", "bad", "text/plain")
	source.Seed("a/good.txt", "good", "text/plain")
	dest.SetPutError("a/bad.txt", errors.New("quota exceeded"))

	cfg := testConfig(t)
	r := NewRunner(cfg, source, dest)
	require.NoError(t, r.Run(context.Background()))

	assert.True(t, dest.Has("a/good.txt"))
	assert.False(t, dest.Has("a/bad.txt"))

	// The failure made it into the failed-object log.
	data, err := os.ReadFile(filepath.Join(cfg.StateDir, "failed.log"))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var entry struct {
		RunID string `json:"runId"`
		Stage string `json:"stage"`
		Key   string `json:"key"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, r.RunID(), entry.RunID)
	assert.Equal(t, "upload", entry.Stage)
	assert.Equal(t, "a/bad.txt", entry.Key)
	assert.Contains(t, entry.Error, "quota exceeded")
}

func TestChecksumMismatchDoesNotAbortTheRun(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/file1.txt", "content X", "text/plain")
	source.Seed("a/file2.txt", "content Y", "text/plain")
	dest.SetChecksumAfterWrite("a/file1.txt", "deadbeef")

	r := NewRunner(testConfig(t), source, dest)
	require.NoError(t, r.Run(context.Background()))

	assert.True(t, dest.Has("a/file1.txt"))
	assert.True(t, dest.Has("a/file2.txt"))
}

func TestUnreachableSourceBucketIsSetupError(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.SetLookupError(errors.New("acme: tenant bucket not found"))

	err := NewRunner(testConfig(t), source, dest).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant bucket not found")
}

func TestContainerCreationFailureIsSetupError(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	dest.SetEnsureError(errors.New("forbidden"))

	err := NewRunner(testConfig(t), source, dest).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination container")
}

func TestCancelledRunCompletesCleanly(t *testing.T) {
	source := testutil.NewFakeStore()
	dest := testutil.NewFakeStore()
	source.Seed("a/file.txt", "content", "text/plain")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, NewRunner(testConfig(t), source, dest).Run(ctx))
	assert.Empty(t, dest.Puts)
}
