package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	filename := GenerateFilename("attachments", "report.pdf")
	path, err := store.Save(context.Background(), filename, strings.NewReader("content"))
	require.NoError(t, err)
	assert.True(t, store.Exists(filename))
	assert.Equal(t, store.Path(filename), path)

	reader, err := store.Open(filename)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	require.NoError(t, store.Remove(filename))
	assert.False(t, store.Exists(filename))
}

func TestDiskStoreRefusesOverwrite(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	filename := GenerateFilename("attachments", "report.pdf")
	_, err = store.Save(context.Background(), filename, strings.NewReader("first"))
	require.NoError(t, err)

	_, err = store.Save(context.Background(), filename, strings.NewReader("second"))
	assert.Error(t, err)
}

func TestGenerateFilenameKeepsExtension(t *testing.T) {
	filename := GenerateFilename("attachments", "Quarterly Report.PDF")
	assert.True(t, strings.HasPrefix(filename, "attachments-"))
	assert.True(t, strings.HasSuffix(filename, ".PDF"))

	other := GenerateFilename("attachments", "Quarterly Report.PDF")
	assert.NotEqual(t, filename, other, "generated names must be unique")
}

func TestPathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	path := store.Path("../../etc/passwd")
	assert.Equal(t, filepath.Join(dir, "passwd"), path)
}
