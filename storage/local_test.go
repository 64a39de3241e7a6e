package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_ArchiveOpenRemove(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	storagePath, err := store.Archive(ctx, "proj-1", "工程量清单.xlsx", strings.NewReader("workbook bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(storagePath, "proj-1/"))
	assert.True(t, strings.HasSuffix(storagePath, "_工程量清单.xlsx"))

	file, err := store.Open(ctx, storagePath)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "workbook bytes", string(data))

	require.NoError(t, store.Remove(ctx, storagePath))
	_, err = store.Open(ctx, storagePath)
	assert.Error(t, err)

	// Removing twice is not an error.
	assert.NoError(t, store.Remove(ctx, storagePath))
}

func TestArchivePath_Sanitizes(t *testing.T) {
	path := archivePath("proj-1", "my file v2.xlsx")
	assert.True(t, strings.HasPrefix(path, "proj-1/"))
	assert.True(t, strings.HasSuffix(path, "_my_file_v2.xlsx"))

	// Two uploads of the same file never collide.
	assert.NotEqual(t, archivePath("proj-1", "a.xlsx"), archivePath("proj-1", "a.xlsx"))
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(Config{Type: TypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = New(Config{Type: TypeS3})
	assert.Error(t, err)

	_, err = New(Config{Type: "ftp"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType("清单.XLSX"))
	assert.Equal(t, "application/vnd.ms-excel", contentType("old.xls"))
	assert.Equal(t, "application/octet-stream", contentType("noext"))
}
